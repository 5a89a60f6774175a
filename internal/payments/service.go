// Package payments runs the payment request lifecycle: a payee creates a
// request, a payer scans it and accepts or rejects, and the payee may cancel
// it while it is still pending.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/amount"
	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/identity"
	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/lock"
	"github.com/congo-pay/qrwallet/internal/notification"
	"github.com/congo-pay/qrwallet/internal/requests"
	"github.com/congo-pay/qrwallet/internal/transfer"
	"github.com/congo-pay/qrwallet/internal/uow"
)

const (
	defaultRequestTTL = 15 * time.Minute
	maxRequestTTL     = 24 * time.Hour
	maxDescription    = 255
)

// errClaimLost aborts an accept scope whose conditional claim matched nothing.
var errClaimLost = errors.New("request claimed by another resolver")

// Options carries the optional collaborators and limits of a Service.
type Options struct {
	Logger     *zap.Logger
	Notifier   notification.Notifier
	Locker     lock.Locker
	Cache      StatusCache
	DefaultTTL time.Duration
	MaxTTL     time.Duration
	BaseURL    string
}

// Service owns every transition of a payment request.
type Service struct {
	requests   requests.Store
	accounts   ledger.Store
	engine     *transfer.Engine
	uow        uow.UnitOfWork
	locker     lock.Locker
	cache      StatusCache
	notifier   notification.Notifier
	logger     *zap.Logger
	defaultTTL time.Duration
	maxTTL     time.Duration
	baseURL    string
	now        func() time.Time
	newID      func() string
}

// NewService constructs a payment request service.
func NewService(store requests.Store, accounts ledger.Store, engine *transfer.Engine, unit uow.UnitOfWork, opts Options) *Service {
	s := &Service{
		requests:   store,
		accounts:   accounts,
		engine:     engine,
		uow:        unit,
		locker:     opts.Locker,
		cache:      opts.Cache,
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		defaultTTL: opts.DefaultTTL,
		maxTTL:     opts.MaxTTL,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.locker == nil {
		s.locker = lock.Noop{}
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = defaultRequestTTL
	}
	if s.maxTTL <= 0 {
		s.maxTTL = maxRequestTTL
	}
	if s.defaultTTL > s.maxTTL {
		s.defaultTTL = s.maxTTL
	}
	return s
}

// Create stores a new pending request for payee.
func (s *Service) Create(ctx context.Context, payee identity.Caller, in CreateInput) (Created, error) {
	value, err := amount.Parse(in.Amount)
	if err != nil {
		return Created{}, err
	}
	description := strings.TrimSpace(in.Description)
	if len(description) > maxDescription {
		return Created{}, errs.Validation("description", "Description is too long")
	}

	now := s.now()
	req := requests.Request{
		ID:                s.newID(),
		RecipientID:       payee.WalletID,
		RecipientUsername: payee.Username,
		Amount:            value,
		Description:       description,
		Status:            requests.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(s.ttl(in.ExpiresIn)),
	}

	err = s.requests.Insert(ctx, req)
	if errors.Is(err, requests.ErrDuplicate) {
		existing, ferr := s.requests.Find(ctx, req.ID, payee.WalletID)
		if ferr != nil {
			return Created{}, ferr
		}
		return s.created(existing), nil
	}
	if err != nil {
		return Created{}, err
	}

	s.logger.Info("payment request created",
		zap.String("request_id", req.ID),
		zap.String("wallet_id", req.RecipientID),
		zap.Int64("amount", req.Amount),
		zap.Time("expires_at", req.ExpiresAt),
	)
	return s.created(req), nil
}

func (s *Service) ttl(requested time.Duration) time.Duration {
	switch {
	case requested <= 0:
		return s.defaultTTL
	case requested > s.maxTTL:
		return s.maxTTL
	default:
		return requested
	}
}

func (s *Service) created(r requests.Request) Created {
	return Created{
		RequestID: r.ID,
		Amount:    r.Amount,
		ExpiresAt: r.ExpiresAt,
		QRURL:     s.baseURL + "/payments/scan?request_id=" + url.QueryEscape(r.ID),
	}
}

// Find looks a request up by id. An empty walletID searches every wallet.
func (s *Service) Find(ctx context.Context, requestID, walletID string) (requests.Request, error) {
	if strings.TrimSpace(requestID) == "" {
		return requests.Request{}, requests.ErrNotFound
	}
	r, err := s.requests.Find(ctx, requestID, walletID)
	if err != nil {
		return requests.Request{}, err
	}
	return s.expireIfDue(ctx, r)
}

// Filter lists the payee's requests, newest first.
func (s *Service) Filter(ctx context.Context, walletID string, filter requests.Filter) ([]requests.Request, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	stored := filter
	if filter.Status == requests.StatusExpired {
		// due requests are still pending on disk until expireIfDue runs
		stored.Status = ""
	}
	list, err := s.requests.List(ctx, walletID, stored)
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, r := range list {
		if r, err = s.expireIfDue(ctx, r); err != nil {
			return nil, err
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// expireIfDue moves a pending request past its window to expired.
func (s *Service) expireIfDue(ctx context.Context, r requests.Request) (requests.Request, error) {
	now := s.now()
	if !r.Expired(now) {
		return r, nil
	}
	ok, err := s.requests.Transition(ctx, r.RecipientID, r.ID, requests.StatusPending, requests.StatusExpired, requests.Party{}, now)
	if err != nil {
		return requests.Request{}, err
	}
	if !ok {
		return s.requests.Find(ctx, r.ID, r.RecipientID)
	}
	r.Status = requests.StatusExpired
	r.UpdatedAt = now
	s.logger.Info("payment request expired", zap.String("request_id", r.ID), zap.String("wallet_id", r.RecipientID))
	return r, nil
}

// Resolve applies actor's action to a pending request. On a request that is
// no longer pending it reports the current status with ErrNotPending (or
// ErrExpired) and changes nothing.
func (s *Service) Resolve(ctx context.Context, requestID string, actor identity.Caller, action Action) (Outcome, error) {
	if strings.TrimSpace(requestID) == "" {
		return Outcome{}, ErrMissingRequestID
	}
	if !action.Valid() {
		return Outcome{}, ErrInvalidAction
	}
	if action == ActionCancel {
		return s.Cancel(ctx, requestID, actor)
	}

	r, err := s.Find(ctx, requestID, "")
	if err != nil {
		return Outcome{}, err
	}
	if r.Status != requests.StatusPending {
		return outcomeOf(r), notPendingErr(r.Status)
	}
	if r.RecipientID == actor.WalletID {
		return outcomeOf(r), ErrOwnRequest
	}

	if action == ActionReject {
		return s.reject(ctx, r, actor)
	}
	return s.accept(ctx, r, actor)
}

func (s *Service) reject(ctx context.Context, r requests.Request, actor identity.Caller) (Outcome, error) {
	ok, err := s.requests.Transition(ctx, r.RecipientID, r.ID, requests.StatusPending, requests.StatusRejected, partyOf(actor), s.now())
	if err != nil {
		return outcomeOf(r), err
	}
	if !ok {
		return s.current(ctx, r)
	}

	r.Status = requests.StatusRejected
	r.SenderWalletID, r.SenderUsername = actor.WalletID, actor.Username
	s.logger.Info("payment request rejected", zap.String("request_id", r.ID), zap.String("sender_wallet_id", actor.WalletID))
	s.remember(ctx, r)
	s.notify(ctx, notification.KindRequestRejected, r.RecipientID, fmt.Sprintf("%s declined your payment request %s", actor.Username, r.ID))
	return outcomeOf(r), nil
}

// accept claims the request and moves the funds in one atomic scope, so two
// concurrent accepts produce one transfer: the loser's claim matches nothing.
func (s *Service) accept(ctx context.Context, r requests.Request, actor identity.Caller) (Outcome, error) {
	var (
		res     transfer.Result
		started bool
	)
	err := s.locker.WithLock(ctx, "payment_request:"+r.ID, func(ctx context.Context) error {
		balance, err := s.accounts.GetBalance(ctx, actor.WalletID)
		if err != nil {
			return err
		}
		if balance < r.Amount {
			return ledger.ErrInsufficientFunds
		}
		if _, err := s.accounts.GetBalance(ctx, r.RecipientID); err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return ErrPayeeNotFound
			}
			return err
		}

		return s.uow.Do(ctx, func(ctx context.Context) error {
			ok, err := s.requests.Transition(ctx, r.RecipientID, r.ID, requests.StatusPending, requests.StatusCompleted, partyOf(actor), s.now())
			if err != nil {
				return err
			}
			if !ok {
				return errClaimLost
			}
			started = true
			res, err = s.engine.Transfer(ctx, transfer.Input{
				From:        actor.WalletID,
				To:          r.RecipientID,
				Amount:      r.Amount,
				Description: "payment request " + r.ID,
			})
			return err
		})
	})

	switch {
	case err == nil:
		r.Status = requests.StatusCompleted
		r.SenderWalletID, r.SenderUsername = actor.WalletID, actor.Username
		s.logger.Info("payment request completed",
			zap.String("request_id", r.ID),
			zap.String("transfer_id", res.TransferID),
			zap.String("sender_wallet_id", actor.WalletID),
			zap.String("wallet_id", r.RecipientID),
			zap.Int64("amount", r.Amount),
		)
		s.remember(ctx, r)
		s.notify(ctx, notification.KindRequestCompleted, r.RecipientID, fmt.Sprintf("%s paid %d for request %s", actor.Username, r.Amount, r.ID))
		out := outcomeOf(r)
		out.TransferID = res.TransferID
		return out, nil
	case errors.Is(err, errClaimLost):
		return s.current(ctx, r)
	case !started:
		return outcomeOf(r), err
	}

	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindNotFound, errs.KindPrecondition:
		// No funds moved; the rollback left the request pending so the payer can retry.
		return outcomeOf(r), err
	}
	return s.fail(ctx, r, actor, err)
}

// fail records a transfer that broke after the request was claimed. The
// atomic scope already discarded the claim, so the request is pending again
// and is moved to failed to stop it being retried into a second transfer.
func (s *Service) fail(ctx context.Context, r requests.Request, actor identity.Caller, cause error) (Outcome, error) {
	s.logger.Error("payment request transfer failed",
		zap.String("request_id", r.ID),
		zap.String("sender_wallet_id", actor.WalletID),
		zap.String("wallet_id", r.RecipientID),
		zap.Int64("amount", r.Amount),
		zap.Error(cause),
	)

	ctx = context.WithoutCancel(ctx)
	ok, err := s.requests.Transition(ctx, r.RecipientID, r.ID, requests.StatusPending, requests.StatusFailed, partyOf(actor), s.now())
	switch {
	case err != nil:
		s.logger.Error("mark payment request failed", zap.String("request_id", r.ID), zap.Error(err))
	case ok:
		r.Status = requests.StatusFailed
		r.SenderWalletID, r.SenderUsername = actor.WalletID, actor.Username
		s.remember(ctx, r)
	default:
		if cur, ferr := s.requests.Find(ctx, r.ID, r.RecipientID); ferr == nil {
			r = cur
		}
	}
	return outcomeOf(r), errs.Transfer(cause)
}

// Cancel withdraws a pending request. Only its payee may cancel it; anyone
// else sees it as not found.
func (s *Service) Cancel(ctx context.Context, requestID string, actor identity.Caller) (Outcome, error) {
	if strings.TrimSpace(requestID) == "" {
		return Outcome{}, ErrMissingRequestID
	}
	r, err := s.requests.Find(ctx, requestID, actor.WalletID)
	if errors.Is(err, requests.ErrNotFound) {
		return Outcome{}, ErrNotOwner
	}
	if err != nil {
		return Outcome{}, err
	}
	if r, err = s.expireIfDue(ctx, r); err != nil {
		return Outcome{}, err
	}
	if r.Status != requests.StatusPending {
		return outcomeOf(r), notPendingErr(r.Status)
	}

	ok, err := s.requests.Transition(ctx, actor.WalletID, r.ID, requests.StatusPending, requests.StatusCancelled, requests.Party{}, s.now())
	if err != nil {
		return outcomeOf(r), err
	}
	if !ok {
		return s.current(ctx, r)
	}

	r.Status = requests.StatusCancelled
	s.logger.Info("payment request cancelled", zap.String("request_id", r.ID), zap.String("wallet_id", r.RecipientID))
	s.remember(ctx, r)
	return outcomeOf(r), nil
}

// Status is the public projection of a request, available without a caller.
func (s *Service) Status(ctx context.Context, requestID string) (StatusView, error) {
	if strings.TrimSpace(requestID) == "" {
		return StatusView{}, requests.ErrNotFound
	}
	if s.cache != nil {
		if view, ok := s.cache.Get(ctx, requestID); ok {
			return view, nil
		}
	}
	r, err := s.Find(ctx, requestID, "")
	if err != nil {
		return StatusView{}, err
	}
	s.remember(ctx, r)
	return statusView(r), nil
}

// Confirmation is what a payer sees after scanning, before accepting.
func (s *Service) Confirmation(ctx context.Context, requestID string, caller identity.Caller) (ConfirmationView, error) {
	r, err := s.Find(ctx, requestID, "")
	if err != nil {
		return ConfirmationView{}, err
	}
	if r.Status != requests.StatusPending {
		return ConfirmationView{}, notPendingErr(r.Status)
	}
	if r.RecipientID == caller.WalletID {
		return ConfirmationView{}, ErrOwnRequest
	}
	balance, err := s.accounts.GetBalance(ctx, caller.WalletID)
	if err != nil {
		return ConfirmationView{}, err
	}
	if balance < r.Amount {
		return ConfirmationView{}, ledger.ErrInsufficientFunds
	}
	return ConfirmationView{
		RequestID:     r.ID,
		Amount:        r.Amount,
		PayeeName:     r.RecipientUsername,
		PayeeWalletID: r.RecipientID,
		Description:   r.Description,
		ExpiresAt:     r.ExpiresAt,
	}, nil
}

// Archive removes a resolved request from the payee's list.
func (s *Service) Archive(ctx context.Context, requestID string, caller identity.Caller) error {
	if strings.TrimSpace(requestID) == "" {
		return ErrMissingRequestID
	}
	if _, err := s.Find(ctx, requestID, caller.WalletID); err != nil {
		return err
	}
	if err := s.requests.Archive(ctx, caller.WalletID, requestID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, requestID)
	}
	s.logger.Info("payment request archived", zap.String("request_id", requestID), zap.String("wallet_id", caller.WalletID))
	return nil
}

// current reloads a request that a conditional transition missed.
func (s *Service) current(ctx context.Context, r requests.Request) (Outcome, error) {
	cur, err := s.requests.Find(ctx, r.ID, r.RecipientID)
	if err != nil {
		return Outcome{}, err
	}
	s.remember(ctx, cur)
	return outcomeOf(cur), notPendingErr(cur.Status)
}

// remember caches the status view of a terminal request.
func (s *Service) remember(ctx context.Context, r requests.Request) {
	if s.cache == nil || !r.Status.Terminal() {
		return
	}
	s.cache.Put(ctx, statusView(r))
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body}); err != nil {
		s.logger.Warn("notification failed", zap.String("kind", kind), zap.Error(err))
	}
}

func notPendingErr(status requests.Status) error {
	if status == requests.StatusExpired {
		return ErrExpired
	}
	return ErrNotPending
}

func outcomeOf(r requests.Request) Outcome {
	return Outcome{RequestID: r.ID, Status: r.Status, Amount: r.Amount}
}

func partyOf(c identity.Caller) requests.Party {
	return requests.Party{WalletID: c.WalletID, Username: c.Username}
}
