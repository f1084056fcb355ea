package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/banklend/pkg/ledger"
	"github.com/mcclellann/banklend/pkg/models"
	"github.com/mcclellann/banklend/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func init() {
	// Money leaves the API as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Server holds the ledger instance.
type Server struct {
	ledger      *ledger.Ledger
	storage     store.Storage // Keep a reference to the storage to close it
	logger      *zap.Logger
	validate    *validator.Validate
	maxBodySize int64
}

// NewServer builds the HTTP handlers over a ledger. Request bodies larger than
// maxBodySize are refused; zero disables the limit.
func NewServer(l *ledger.Ledger, s store.Storage, log *zap.Logger, maxBodySize int64) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ledger:      l,
		storage:     s,
		logger:      log,
		validate:    newValidator(),
		maxBodySize: maxBodySize,
	}
}

// newValidator reports fields by their JSON names. Decimal fields are checked
// by sign, so gt=0 and gte=0 stay exact for any magnitude.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.Sign()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

type createLoanRequest struct {
	CustomerID         string          `json:"customer_id" validate:"required"`
	LoanAmount         decimal.Decimal `json:"loan_amount" validate:"gt=0"`
	LoanPeriodYears    int             `json:"loan_period_years" validate:"gt=0,lte=100"`
	InterestRateYearly decimal.Decimal `json:"interest_rate_yearly" validate:"gte=0"`
}

type recordPaymentRequest struct {
	Amount      decimal.Decimal    `json:"amount" validate:"gt=0"`
	PaymentType models.PaymentType `json:"payment_type" validate:"required,oneof=EMI LUMP_SUM"`
}

type createCustomerRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if !s.decode(w, r, &req) {
		return
	}

	created, err := s.ledger.CreateLoan(r.Context(), req.CustomerID, req.LoanAmount, req.InterestRateYearly, req.LoanPeriodYears)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := s.loanID(w, r)
	if !ok {
		return
	}

	var req recordPaymentRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.ledger.RecordPayment(r.Context(), loanID, req.Amount, req.PaymentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getLedgerHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := s.loanID(w, r)
	if !ok {
		return
	}

	view, err := s.ledger.GetLedger(r.Context(), loanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) listActiveLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.ListActiveLoans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.ListAllLoans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) customerOverviewHandler(w http.ResponseWriter, r *http.Request) {
	overview, err := s.ledger.GetCustomerOverview(r.Context(), mux.Vars(r)["customer_id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.ListCustomers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !s.decode(w, r, &req) {
		return
	}

	customer, err := s.ledger.CreateCustomer(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Bank Lending System API is running!")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Code:    ledger.CodeNotFound,
		Message: fmt.Sprintf("Route %s %s not found.", r.Method, r.URL.Path),
	})
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Code:    ledger.CodeValidation,
		Message: fmt.Sprintf("Method %s is not allowed on %s.", r.Method, r.URL.Path),
	})
}

// loanID parses the {loan_id} path variable. A value that is not a UUID cannot
// name a loan, so it is answered like any other unknown loan.
func (s *Server) loanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["loan_id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Code:    ledger.CodeNotFound,
			Message: fmt.Sprintf("Loan with ID '%s' not found.", raw),
		})
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into dst and runs its validate tags. On failure the
// error response has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if s.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Code:    ledger.CodeValidation,
				Message: fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit),
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    ledger.CodeValidation,
			Message: "Invalid input data: malformed JSON body.",
			Details: []string{err.Error()},
		})
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			s.writeError(w, r, err)
			return false
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, describeFieldError(fe))
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    ledger.CodeValidation,
			Message: "Invalid input data.",
			Details: details,
		})
		return false
	}
	return true
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// writeError maps a ledger error to its status. Store failures are logged and
// reported with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := ledger.CodeOf(err)
	status := statusFor(code)

	message := "Internal server error."
	var le *ledger.Error
	if code != ledger.CodeStore && errors.As(err, &le) {
		message = le.Message
	} else {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func statusFor(code string) int {
	switch code {
	case ledger.CodeValidation, ledger.CodePaidOff:
		return http.StatusBadRequest
	case ledger.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
