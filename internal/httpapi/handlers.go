package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/receipt"
	"budget-ledger-go/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context(), userFrom(r.Context()).Id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := s.ledger.CreateAccount(r.Context(), userFrom(r.Context()).Id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) setDefaultAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.SetDefaultAccount(r.Context(), userFrom(r.Context()).Id, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := s.ledger.GetTransactionHistory(r.Context(), userFrom(r.Context()).Id, mux.Vars(r)["id"], limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var input models.TransactionInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.ledger.CreateTransaction(r.Context(), userFrom(r.Context()).Id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	record, err := s.ledger.GetTransaction(r.Context(), userFrom(r.Context()).Id, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var input models.TransactionInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.ledger.UpdateTransaction(r.Context(), userFrom(r.Context()).Id, mux.Vars(r)["id"], input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.DeleteTransaction(r.Context(), userFrom(r.Context()).Id, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	progress, err := s.ledger.GetBudget(r.Context(), userFrom(r.Context()).Id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) updateBudget(w http.ResponseWriter, r *http.Request) {
	var input models.BudgetInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}
	progress, err := s.ledger.UpdateBudget(r.Context(), userFrom(r.Context()).Id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

const (
	msgNoReceipt         = "No receipt data detected, please enter the transaction manually"
	msgExtractionFailed  = "Could not read the receipt, please enter the transaction manually"
	msgScanningDisabled  = "Receipt scanning is not available, please enter the transaction manually"
	multipartMemoryBytes = 1 << 20
)

// scanReceipt accepts a multipart "file" field. Extraction problems degrade to
// found=false so the client falls back to manual entry.
func (s *Server) scanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.receipts == nil {
		writeJSON(w, http.StatusOK, models.ScanResult{Found: false, Message: msgScanningDisabled})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, receipt.MaxImageBytes+multipartMemoryBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		writeError(w, validationError("invalid upload: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, validationError("missing file field"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, receipt.MaxImageBytes+1))
	if err != nil {
		writeError(w, validationError("unable to read upload"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	scanned, err := s.receipts.Extract(r.Context(), image, mimeType)
	switch {
	case errors.Is(err, store.ErrExtractionFailure):
		zap.L().Info("Receipt extraction failed, falling back to manual entry",
			zap.String("user_id", userFrom(r.Context()).Id),
			zap.Error(err))
		writeJSON(w, http.StatusOK, models.ScanResult{Found: false, Message: msgExtractionFailed})
	case err != nil:
		writeError(w, err)
	case scanned == nil:
		writeJSON(w, http.StatusOK, models.ScanResult{Found: false, Message: msgNoReceipt})
	default:
		writeJSON(w, http.StatusOK, models.ScanResult{Found: true, Receipt: scanned})
	}
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, validationError(name + " must be a non-negative integer")
	}
	return value, nil
}

func validationError(message string) error {
	return fmt.Errorf("%w: %s", store.ErrValidation, message)
}
