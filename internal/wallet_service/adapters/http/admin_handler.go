package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/telcocash/walletd/internal/wallet_service/app"
	"github.com/telcocash/walletd/internal/wallet_service/domain"
)

// AdminHandler serves the operator API: reconciliations, settlements and
// manual ledger adjustments. All routes sit behind AdminOnlyMiddleware.
type AdminHandler struct {
	ledger      *app.LedgerService
	purchases   *app.PurchaseService
	recharges   *app.RechargeService
	withdrawals *app.WithdrawalService
	incomes     *app.IncomeService
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewAdminHandler(
	ledger *app.LedgerService,
	purchases *app.PurchaseService,
	recharges *app.RechargeService,
	withdrawals *app.WithdrawalService,
	incomes *app.IncomeService,
	logger *slog.Logger,
	validate *validator.Validate,
) *AdminHandler {
	return &AdminHandler{
		ledger:      ledger,
		purchases:   purchases,
		recharges:   recharges,
		withdrawals: withdrawals,
		incomes:     incomes,
		logger:      logger,
		validate:    validate,
	}
}

// RegisterRoutes sets up the operator routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/purchases/{requestID}/reconcile", h.ReconcilePurchase)
	r.Post("/recharges/{requestID}/reconcile", h.ReconcileRecharge)
	r.Get("/accounts/{accountID}/transactions", h.ListAccountTransactions)
	r.Get("/withdrawals", h.ListWithdrawals)
	r.Post("/withdrawals/{withdrawalID}/settle", h.SettleWithdrawal)
	r.Post("/adjustments", h.Adjust)
	r.Post("/income/accruals", h.AccrueIncome)
}

func (h *AdminHandler) ReconcilePurchase(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO ReconcileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	requestID := chi.URLParam(r, "requestID")
	request, err := h.purchases.Reconcile(r.Context(), requestID,
		domain.ReconcileOutcome(reqDTO.Outcome), account.ID, reqDTO.Note)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Purchase reconcile failed", "request_id", requestID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, request)
}

// ReconcileRecharge is the manual override for stuck recharge requests, e.g.
// when the fulfillment provider answered out of band.
func (h *AdminHandler) ReconcileRecharge(w http.ResponseWriter, r *http.Request) {
	var reqDTO ReconcileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	requestID := chi.URLParam(r, "requestID")
	request, err := h.recharges.Reconcile(r.Context(), requestID,
		domain.ReconcileOutcome(reqDTO.Outcome), reqDTO.Note)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Recharge reconcile failed", "request_id", requestID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, request)
}

// ListAccountTransactions is the support view of any account's ledger trail.
func (h *AdminHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	accountID := chi.URLParam(r, "accountID")
	txns, total, err := h.ledger.ListTransactions(r.Context(), accountID, filter)
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

func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.WithdrawalFilter{
		Status: domain.WithdrawalStatus(q.Get("status")),
		Method: domain.WithdrawalMethod(q.Get("method")),
	}
	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid page: "+err.Error())
			return
		}
		filter.Page = page
	}
	if s := q.Get("page_size"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid page_size: "+err.Error())
			return
		}
		filter.PageSize = size
	}

	withdrawals, total, err := h.withdrawals.List(r.Context(), filter)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, WithdrawalListResponseDTO{
		Withdrawals: withdrawals,
		Total:       total,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	})
}

func (h *AdminHandler) SettleWithdrawal(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO SettleWithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	withdrawalID := chi.URLParam(r, "withdrawalID")
	withdrawal, err := h.withdrawals.Settle(r.Context(), withdrawalID,
		domain.WithdrawalStatus(reqDTO.Status), account.ID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Withdrawal settle failed", "withdrawal_id", withdrawalID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, withdrawal)
}

// Adjust applies a manual credit or debit, e.g. a support correction. It goes
// through the same atomic mutation path as every other ledger write.
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(w, r)
	if !ok {
		return
	}
	var reqDTO AdjustmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	txn, err := h.ledger.ApplyDelta(r.Context(), app.ApplyDeltaInput{
		AccountID:   reqDTO.AccountID,
		Amount:      reqDTO.Amount,
		Direction:   domain.TransactionType(reqDTO.Direction),
		Description: reqDTO.Description,
		Reference:   reqDTO.Reference,
		Metadata:    map[string]string{"adjusted_by": account.ID},
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "Manual adjustment failed",
			"account_id", reqDTO.AccountID, "reference", reqDTO.Reference, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, txn)
}

func (h *AdminHandler) AccrueIncome(w http.ResponseWriter, r *http.Request) {
	var reqDTO AccrueIncomeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	txn, err := h.incomes.Accrue(r.Context(), reqDTO.AccountID,
		domain.IncomeSource(reqDTO.Source), reqDTO.Amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Income accrual failed", "account_id", reqDTO.AccountID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, txn)
}
