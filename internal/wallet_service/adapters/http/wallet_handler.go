package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/telcocash/walletd/internal/wallet_service/app"
	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

// WalletHandler serves the account-facing wallet API.
type WalletHandler struct {
	ledger      *app.LedgerService
	purchases   *app.PurchaseService
	recharges   *app.RechargeService
	withdrawals *app.WithdrawalService
	incomes     *app.IncomeService
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewWalletHandler(
	ledger *app.LedgerService,
	purchases *app.PurchaseService,
	recharges *app.RechargeService,
	withdrawals *app.WithdrawalService,
	incomes *app.IncomeService,
	logger *slog.Logger,
	validate *validator.Validate,
) *WalletHandler {
	return &WalletHandler{
		ledger:      ledger,
		purchases:   purchases,
		recharges:   recharges,
		withdrawals: withdrawals,
		incomes:     incomes,
		logger:      logger,
		validate:    validate,
	}
}

// RegisterRoutes sets up the account-facing wallet routes.
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wallet", h.GetWallet)
	r.Get("/wallet/transactions", h.ListTransactions)
	r.Get("/wallet/transactions/{reference}", h.GetTransactionByReference)
	r.Post("/wallet/transfer", h.Transfer)

	r.Get("/offers", h.ListOffers)
	r.Post("/purchases", h.Purchase)
	r.Get("/purchases", h.ListPurchases)
	r.Get("/purchases/{requestID}", h.GetPurchase)

	r.Get("/operators", h.ListOperators)
	r.Post("/recharges", h.Recharge)
	r.Get("/recharges", h.ListRecharges)
	r.Get("/recharges/{requestID}", h.GetRecharge)

	r.Post("/withdrawals", h.RequestWithdrawal)
	r.Get("/withdrawals", h.ListWithdrawals)

	r.Get("/income", h.GetIncome)
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	wallet, err := h.ledger.GetWallet(r.Context(), account.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	filter, err := parseTransactionFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	txns, total, err := h.ledger.ListTransactions(r.Context(), account.ID, filter)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	normalized := filter.Normalized()
	respondWithJSON(w, http.StatusOK, TransactionListResponseDTO{
		Transactions: txns,
		Total:        total,
		Page:         normalized.Page,
		PageSize:     normalized.PageSize,
	})
}

// GetTransactionByReference lets a caller that hit a duplicate-reference
// conflict poll for the result that was already applied.
func (h *WalletHandler) GetTransactionByReference(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	txn, err := h.ledger.GetTransactionByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if txn.AccountID != account.ID && !account.IsAdmin {
		respondWithError(w, http.StatusNotFound, domain.ErrTransactionNotFound.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, txn)
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter
	q := r.URL.Query()

	if t := q.Get("type"); t != "" {
		filter.Type = domain.TransactionType(t)
	}
	if s := q.Get("start_date"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &ts
	}
	if s := q.Get("end_date"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &ts
	}
	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil {
			return filter, err
		}
		filter.Page = page
	}
	if s := q.Get("page_size"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil {
			return filter, err
		}
		filter.PageSize = size
	}
	return filter, nil
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO TransferRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	txn, err := h.ledger.Transfer(r.Context(), app.TransferInput{
		FromAccountID: account.ID,
		ToPhoneNumber: reqDTO.PhoneNumber,
		Amount:        reqDTO.Amount,
		Reference:     reqDTO.Reference,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Transfer failed", "account_id", account.ID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, txn)
}

func (h *WalletHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.purchases.ListOffers(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, offers)
}

func (h *WalletHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO PurchaseRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	request, err := h.purchases.Purchase(r.Context(), app.PurchaseInput{
		AccountID:   account.ID,
		OfferID:     reqDTO.OfferID,
		PhoneNumber: reqDTO.PhoneNumber,
		Region:      reqDTO.Region,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Purchase failed", "account_id", account.ID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, request)
}

func (h *WalletHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	status := domain.RequestStatus(r.URL.Query().Get("status"))
	requests, err := h.purchases.ListRequests(r.Context(), account.ID, status)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

func (h *WalletHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	request, err := h.purchases.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if request.AccountID != account.ID && !account.IsAdmin {
		respondWithError(w, http.StatusNotFound, domain.ErrRequestNotFound.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, request)
}

func (h *WalletHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := h.recharges.ListOperators(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, operators)
}

func (h *WalletHandler) Recharge(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO RechargeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	request, err := h.recharges.Recharge(r.Context(), app.RechargeInput{
		AccountID:    account.ID,
		OperatorCode: reqDTO.OperatorCode,
		PhoneNumber:  reqDTO.PhoneNumber,
		Amount:       reqDTO.Amount,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Recharge failed", "account_id", account.ID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, request)
}

func (h *WalletHandler) ListRecharges(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	requests, err := h.recharges.ListRequests(r.Context(), account.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

func (h *WalletHandler) GetRecharge(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	request, err := h.recharges.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if request.AccountID != account.ID && !account.IsAdmin {
		respondWithError(w, http.StatusNotFound, domain.ErrRequestNotFound.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, request)
}

func (h *WalletHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO WithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	withdrawal, err := h.withdrawals.Request(r.Context(), &domain.Withdrawal{
		AccountID:         account.ID,
		Amount:            reqDTO.Amount,
		Method:            domain.WithdrawalMethod(reqDTO.Method),
		Source:            domain.WithdrawalSource(reqDTO.Source),
		MobileOperator:    reqDTO.MobileOperator,
		MobileNumber:      reqDTO.MobileNumber,
		BankName:          reqDTO.BankName,
		BankBranchName:    reqDTO.BankBranchName,
		BankAccountNumber: reqDTO.BankAccountNumber,
		AccountHolderName: reqDTO.AccountHolderName,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Withdrawal request failed", "account_id", account.ID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, withdrawal)
}

func (h *WalletHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	withdrawals, err := h.withdrawals.ListByAccount(r.Context(), account.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, withdrawals)
}

func (h *WalletHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	income, err := h.incomes.GetIncome(r.Context(), account.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toIncomeResponse(income))
}
