package command

import "errors"

// Validation failures are reported verbatim to the client, so their messages
// are written for the user, not the log.
var (
	ErrBlankInput           = errors.New("the command passed is blank, try 'help' to get additional info")
	ErrUnknownCommand       = errors.New("no such command present, try 'help' to get additional info")
	ErrInvalidArgumentCount = errors.New("invalid number of arguments passed, try 'help' for additional info")
	ErrMissingFlag          = errors.New("missing flag")
	ErrInvalidNumber        = errors.New("not a valid number")
	ErrUnauthenticated      = errors.New("you should log in to execute this command")
	ErrInvalidEmail         = errors.New("invalid email format, expected format: example@domain.com")
	ErrInvalidPassword      = errors.New("invalid password, it should be at least 6 symbols for safety purposes")
)
