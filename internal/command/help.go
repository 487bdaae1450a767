package command

const helpText = `Crypto Wallet
Available Commands:
[Public]
register --username=<email> --password=<pass> -> Register a new user
login --username=<email> --password=<pass>    -> Log into the system
list-offerings                                -> List cryptocurrencies
help                                          -> Show this help message
logout                                        -> Log out of the system
[Authenticated]
deposit <amount>                              -> Add money to the wallet
buy --offering=<code> --money=<amount>        -> Buy an asset for the amount
sell --offering=<code>                        -> Sell the entire held asset
get-wallet-summary                            -> View balance and transactions
get-wallet-overall-summary                    -> View invested capital and profit`
