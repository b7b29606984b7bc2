package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/pkg/scheduler"
	"github.com/comit-network/swapd/pkg/stats"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultPollInterval ...
	DefaultPollInterval = 2 * time.Second
	// DefaultActionTimeout is how long a failing ledger action is retried
	// before giving up.
	DefaultActionTimeout = 10 * time.Minute
)

// AcceptPolicy decides whether a new swap should be accepted or declined.
type AcceptPolicy func(swap domain.Swap) bool

// AcceptAll ...
func AcceptAll(domain.Swap) bool { return true }

// Opts defines the parameters needed for creating an execution engine with
// NewService.
type Opts struct {
	Name          string
	Registry      ports.SwapRegistry
	Dispatcher    *Dispatcher
	Journal       ports.ActionJournal
	Notifier      ports.SwapNotifier
	AcceptPolicy  AcceptPolicy
	PollInterval  time.Duration
	ActionTimeout time.Duration
}

// Service is the swap execution engine. On every tick it fetches the swaps
// from the registry and, in order, accepts the new ones, performs the next
// ledger action of the ongoing ones and reports the finished ones. Every
// ledger action is dispatched at most once and every finished swap is
// reported once.
type Service struct {
	name          string
	registry      ports.SwapRegistry
	dispatcher    *Dispatcher
	journal       ports.ActionJournal
	notifier      ports.SwapNotifier
	acceptPolicy  AcceptPolicy
	actionTimeout time.Duration

	tickLock     sync.Mutex
	actionsDone  map[string]struct{}
	swapsDone    map[string]struct{}
	swapsDecided map[string]struct{}
	swapsAborted map[string]error
	failingSince map[string]time.Time

	task   *scheduler.RecurringTask
	ctx    context.Context
	now    func() time.Time
	logger *log.Entry
}

// NewService returns an execution engine ready to be started.
func NewService(opts Opts) (*Service, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("missing swap registry")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("missing action dispatcher")
	}
	if opts.AcceptPolicy == nil {
		opts.AcceptPolicy = AcceptAll
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}

	svc := &Service{
		name:          opts.Name,
		registry:      opts.Registry,
		dispatcher:    opts.Dispatcher,
		journal:       opts.Journal,
		notifier:      opts.Notifier,
		acceptPolicy:  opts.AcceptPolicy,
		actionTimeout: opts.ActionTimeout,
		actionsDone:   make(map[string]struct{}),
		swapsDone:     make(map[string]struct{}),
		swapsDecided:  make(map[string]struct{}),
		swapsAborted:  make(map[string]error),
		failingSince:  make(map[string]time.Time),
		ctx:           context.Background(),
		now:           time.Now,
		logger:        log.WithField("actor", opts.Name),
	}
	svc.task = scheduler.NewRecurringTask(opts.PollInterval, func() {
		svc.Tick(svc.ctx)
	})
	return svc, nil
}

// Start restores the performed actions and reported swaps from the journal,
// marks the swaps already finished as reported without announcing them and
// starts polling the registry.
func (s *Service) Start(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return err
	}
	// An in-flight tick must be able to complete after ctx is canceled.
	s.ctx = context.WithoutCancel(ctx)
	s.task.Start()
	s.logger.Debug("execution engine started")
	return nil
}

// Stop prevents further ticks and waits for the one in progress to complete.
func (s *Service) Stop() {
	s.task.Stop()
	s.logger.Debug("execution engine stopped")
}

// Tick runs one pass over the three swap buckets.
func (s *Service) Tick(ctx context.Context) {
	s.tickLock.Lock()
	defer s.tickLock.Unlock()

	s.handleNewSwaps(ctx)
	s.handleOngoingSwaps(ctx)
	s.handleDoneSwaps(ctx)
}

// IsReported returns whether the swap has been marked as finished.
func (s *Service) IsReported(swapID string) bool {
	s.tickLock.Lock()
	defer s.tickLock.Unlock()
	_, ok := s.swapsDone[swapID]
	return ok
}

// AbortReason returns the error that made the engine give up on the swap.
func (s *Service) AbortReason(swapID string) error {
	s.tickLock.Lock()
	defer s.tickLock.Unlock()
	return s.swapsAborted[swapID]
}

func (s *Service) restore(ctx context.Context) error {
	s.tickLock.Lock()
	defer s.tickLock.Unlock()

	if s.journal != nil {
		entries, err := s.journal.ListActions(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore performed actions: %w", err)
		}
		for _, e := range entries {
			s.actionsDone[e.Key] = struct{}{}
		}

		reported, err := s.journal.ListReportedSwaps(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore reported swaps: %w", err)
		}
		for _, r := range reported {
			s.swapsDone[r.SwapID] = struct{}{}
		}
	}

	swaps, err := s.registry.ListSwaps(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch swaps: %w", err)
	}
	for _, swap := range swaps {
		if swap.IsDone() {
			s.swapsDone[swap.ID] = struct{}{}
		}
	}
	return nil
}

func (s *Service) fetchSwaps(
	ctx context.Context, bucket string, filter func(domain.Swap) bool,
) []domain.Swap {
	swaps, err := s.registry.ListSwaps(ctx)
	if err != nil {
		s.logger.WithError(err).Warnf("failed to fetch %s swaps", bucket)
		return nil
	}
	filtered := make([]domain.Swap, 0, len(swaps))
	for _, swap := range swaps {
		if filter(swap) {
			filtered = append(filtered, swap)
		}
	}
	return filtered
}

func (s *Service) handleNewSwaps(ctx context.Context) {
	for _, swap := range s.fetchSwaps(ctx, "new", domain.Swap.IsNew) {
		if _, ok := s.swapsDecided[swap.ID]; ok {
			continue
		}

		name := domain.ActionAccept
		if !s.acceptPolicy(swap) {
			name = domain.ActionDecline
		}
		action, ok := swap.FindAction(name)
		if !ok {
			continue
		}
		logger := s.logger.WithFields(log.Fields{"swap_id": swap.ID, "action": name})

		if _, err := s.registry.ExecuteAction(
			ctx, action, s.dispatcher.ResolveField,
		); err != nil {
			logger.WithError(err).Warn("failed to execute action")
			stats.SwapActions.WithLabelValues(string(name), stats.OutcomeFailed).Inc()
			continue
		}

		s.swapsDecided[swap.ID] = struct{}{}
		stats.SwapActions.WithLabelValues(string(name), stats.OutcomeExecuted).Inc()
		logger.WithField("outcome", stats.OutcomeExecuted).Infof("%s sent", name)
	}
}

func (s *Service) handleOngoingSwaps(ctx context.Context) {
	for _, swap := range s.fetchSwaps(ctx, "ongoing", domain.Swap.IsOngoing) {
		if _, ok := s.swapsAborted[swap.ID]; ok {
			continue
		}
		action, _ := swap.FindAction(domain.OngoingActions...)
		s.performNextLedgerAction(ctx, swap, action)
	}
}

func (s *Service) performNextLedgerAction(
	ctx context.Context, swap domain.Swap, action domain.Action,
) {
	logger := s.logger.WithFields(log.Fields{
		"swap_id": swap.ID, "action": action.Name,
	})

	executionKey := swap.ID + "/" + string(action.Name)
	result, err := s.registry.ExecuteAction(ctx, action, s.dispatcher.ResolveField)
	if err != nil {
		if isFatal(err) {
			delete(s.failingSince, executionKey)
			s.abort(logger, swap.ID, action.Name, err)
			return
		}
		if _, ok := s.failingSince[executionKey]; !ok {
			s.failingSince[executionKey] = s.now()
		}
		if s.timedOut(logger, swap.ID, action.Name, executionKey) {
			return
		}
		stats.SwapActions.WithLabelValues(string(action.Name), stats.OutcomeFailed).Inc()
		logger.WithError(err).Warn("failed to execute action, retrying")
		return
	}
	delete(s.failingSince, executionKey)

	ledgerAction, ok := result.LedgerAction()
	if !ok {
		return
	}

	key, err := domain.LedgerActionKey(ledgerAction)
	if err != nil {
		s.abort(logger, swap.ID, action.Name, err)
		return
	}
	if _, ok := s.actionsDone[key]; ok {
		stats.SwapActions.WithLabelValues(string(action.Name), stats.OutcomeSkipped).Inc()
		logger.WithField("outcome", stats.OutcomeSkipped).Debug("ledger action already performed")
		return
	}

	if s.timedOut(logger, swap.ID, action.Name, key) {
		return
	}

	txid, err := s.dispatcher.Dispatch(ctx, ledgerAction)
	if err != nil {
		if isFatal(err) {
			s.abort(logger, swap.ID, action.Name, err)
			return
		}
		if _, ok := s.failingSince[key]; !ok {
			s.failingSince[key] = s.now()
		}
		stats.SwapActions.WithLabelValues(string(action.Name), stats.OutcomeFailed).Inc()
		logger.WithError(err).WithField("outcome", stats.OutcomeFailed).Warn("ledger action failed, retrying")
		return
	}

	delete(s.failingSince, key)
	s.actionsDone[key] = struct{}{}
	stats.SwapActions.WithLabelValues(string(action.Name), stats.OutcomeDispatched).Inc()
	logger.WithFields(log.Fields{
		"outcome": stats.OutcomeDispatched, "kind": ledgerAction.Kind(), "txid": txid,
	}).Info("ledger action dispatched")

	if s.journal != nil {
		if err := s.journal.AddAction(ctx, domain.JournalEntry{
			Key:       key,
			SwapID:    swap.ID,
			Action:    action.Name,
			Kind:      ledgerAction.Kind(),
			TxID:      txid,
			Timestamp: s.now().Unix(),
		}); err != nil {
			logger.WithError(err).Warn("failed to journal ledger action")
		}
	}
}

// timedOut gives up on the swap if the action identified by key has been
// failing for longer than the action timeout.
func (s *Service) timedOut(
	logger *log.Entry, swapID string, name domain.ActionName, key string,
) bool {
	since, ok := s.failingSince[key]
	if !ok || s.now().Sub(since) < s.actionTimeout {
		return false
	}
	delete(s.failingSince, key)
	err := fmt.Errorf("%w: %s not performed after %s", domain.ErrTimeout, name, s.actionTimeout)
	stats.SwapActions.WithLabelValues(string(name), stats.OutcomeTimeout).Inc()
	s.swapsAborted[swapID] = err
	logger.WithField("outcome", stats.OutcomeTimeout).Error(err)
	return true
}

func (s *Service) abort(
	logger *log.Entry, swapID string, name domain.ActionName, err error,
) {
	s.swapsAborted[swapID] = err
	stats.SwapActions.WithLabelValues(string(name), stats.OutcomeAborted).Inc()
	logger.WithError(err).WithField("outcome", stats.OutcomeAborted).Error("giving up on swap")
}

func (s *Service) handleDoneSwaps(ctx context.Context) {
	for _, swap := range s.fetchSwaps(ctx, "done", domain.Swap.IsDone) {
		if _, ok := s.swapsDone[swap.ID]; ok {
			continue
		}
		s.swapsDone[swap.ID] = struct{}{}

		buy, sell := swap.Assets()
		s.logger.WithFields(log.Fields{
			"swap_id": swap.ID,
			"status":  swap.Status,
			"sell":    sell.Quantity + " " + sell.Name,
			"buy":     buy.Quantity + " " + buy.Name,
		}).Infof("swap finished with status %s", swap.Status)
		stats.SwapsFinished.WithLabelValues(string(swap.Status)).Inc()

		if s.notifier != nil {
			if err := s.notifier.NotifySwapFinished(ctx, swap); err != nil {
				s.logger.WithError(err).WithField("swap_id", swap.ID).Warn("failed to notify finished swap")
			}
		}
		if s.journal != nil {
			if err := s.journal.AddReportedSwap(ctx, domain.ReportedSwap{
				SwapID:    swap.ID,
				Status:    swap.Status,
				Timestamp: s.now().Unix(),
			}); err != nil {
				s.logger.WithError(err).WithField("swap_id", swap.ID).Warn("failed to journal finished swap")
			}
		}
	}
}

func isFatal(err error) bool {
	return errors.Is(err, domain.ErrUnsupportedActionKind) ||
		errors.Is(err, domain.ErrInvalidLedgerAction) ||
		errors.Is(err, domain.ErrNetworkMismatch)
}
