package http

const (
	TransactionIDParam = "transactionID"
)
