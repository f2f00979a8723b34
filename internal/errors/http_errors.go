package errors

import (
	"encoding/json"
	"net/http"
)

type HTTPError struct {
	Code   int         `json:"-"`
	Detail interface{} `json:"detail"`
}

type fieldDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// HandleHTTPError writes err as a JSON {"detail": ...} body with the status
// code its type maps to.
func HandleHTTPError(w http.ResponseWriter, err error) {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		httpErr       *HTTPError
	)

	switch {
	case As(err, &validationErr):
		details := make([]fieldDetail, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			loc := []string{"body"}
			if f.Field != "" {
				loc = append(loc, f.Field)
			}
			details = append(details, fieldDetail{
				Loc:  loc,
				Msg:  f.Message,
				Type: f.Type,
			})
		}
		httpErr = &HTTPError{Code: http.StatusUnprocessableEntity, Detail: details}
	case As(err, &notFoundErr):
		httpErr = &HTTPError{Code: http.StatusNotFound, Detail: ErrTransactionNotFound}
	default:
		httpErr = &HTTPError{Code: http.StatusInternalServerError, Detail: ErrInternalServer}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Code)
	json.NewEncoder(w).Encode(httpErr)
}
