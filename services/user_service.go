package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/guard"
	"insightQuestAPI/internal/metrics"
	"insightQuestAPI/internal/notification"
	"insightQuestAPI/internal/store"
	"insightQuestAPI/internal/streak"
	"insightQuestAPI/internal/types/user"
)

type UserService struct {
	users    store.UserStore
	guard    guard.LoginGuard
	notifier notification.Notifier
	sessions *sessionRegistry
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(users store.UserStore, g guard.LoginGuard, n notification.Notifier) *UserService {
	if g == nil {
		g = guard.NewMemory()
	}
	if n == nil {
		n = notification.LogNotifier{}
	}
	return &UserService{
		users:    users,
		guard:    g,
		notifier: n,
		sessions: newSessionRegistry(),
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithClock overrides the time source used for login days and timestamps.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// NormalizeAddress validates a wallet address and returns the user id derived
// from it.
func (s *UserService) NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if err := s.validate.Var(address, "required,eth_addr"); err != nil {
		return "", fmt.Errorf("%w: invalid wallet address %q", apperr.ErrInvalidArgument, address)
	}
	return strings.ToLower(address), nil
}

// ConnectWallet loads the user for address, creating a fresh record on first
// connection, and registers a session for it. A non-empty subject is the
// authenticated account: an unbound wallet is bound to it and a wallet bound
// to another account is refused.
func (s *UserService) ConnectWallet(ctx context.Context, address, subject string) (*Session, error) {
	id, err := s.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	sess, ok := s.sessions.get(id, s.now().UTC())
	if !ok {
		u, err := s.users.GetUser(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			now := s.now().UTC()
			u = &user.User{
				ID:        id,
				Address:   strings.TrimSpace(address),
				ClerkID:   subject,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.users.SaveUser(ctx, u); err != nil {
				log.Printf("ConnectWallet: Failed to create user %s: %v", id, err)
				return nil, fmt.Errorf("%w: create user: %v", apperr.ErrPersistence, err)
			}
			log.Printf("ConnectWallet: Created user %s", id)
		default:
			log.Printf("ConnectWallet: Failed to load user %s: %v", id, err)
			return nil, fmt.Errorf("%w: load user: %v", apperr.ErrPersistence, err)
		}
		sess = s.sessions.getOrAdd(id, newSession(u, s.now().UTC()))
	}

	if err := s.bind(ctx, sess, subject); err != nil {
		return nil, err
	}
	return sess, nil
}

// bind ties the session's wallet to subject unless it is bound already.
func (s *UserService) bind(ctx context.Context, sess *Session, subject string) error {
	if subject == "" {
		return nil
	}

	switch owner := sess.User().ClerkID; owner {
	case subject:
		return nil
	case "":
	default:
		return fmt.Errorf("%w: %s", apperr.ErrForbidden, sess.UserID())
	}

	updated, err := s.apply(ctx, sess, func(u *user.User) {
		if u.ClerkID == "" {
			u.ClerkID = subject
		}
	})
	if err != nil {
		return err
	}
	if updated.ClerkID != subject {
		return fmt.Errorf("%w: %s", apperr.ErrForbidden, sess.UserID())
	}

	log.Printf("ConnectWallet: Bound wallet %s to account %s", updated.ID, subject)
	return nil
}

func (s *UserService) DisconnectWallet(address string) {
	if id, err := s.NormalizeAddress(address); err == nil {
		s.sessions.remove(id)
	}
}

// Session returns the live session for a wallet. A wallet that was connected
// before, for example on another instance, is resumed from the store; one
// that never connected is unauthenticated. With a non-empty subject the wallet
// must be bound to that account.
func (s *UserService) Session(ctx context.Context, address, subject string) (*Session, error) {
	id, err := s.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}

	sess, ok := s.sessions.get(id, s.now().UTC())
	if !ok {
		u, err := s.users.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, fmt.Errorf("%w: wallet %s is not connected", apperr.ErrUnauthenticated, id)
			}
			return nil, fmt.Errorf("%w: load user: %v", apperr.ErrPersistence, err)
		}
		sess = s.sessions.getOrAdd(id, newSession(u, s.now().UTC()))
	}

	if subject != "" && sess.User().ClerkID != subject {
		return nil, fmt.Errorf("%w: %s", apperr.ErrForbidden, id)
	}
	return sess, nil
}

func (s *UserService) ActiveSessions() int {
	return s.sessions.len()
}

// EvictIdleSessions implements workers.Sweeper.
func (s *UserService) EvictIdleSessions(cutoff time.Time) int {
	return s.sessions.evictIdle(cutoff)
}

func (s *UserService) Profile(sess *Session) (*user.Profile, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return user.NewProfile(sess.User())
}

func (s *UserService) UpdateProfile(ctx context.Context, sess *Session, req *user.UpdateProfileRequest) (*user.Profile, error) {
	updated, err := s.apply(ctx, sess, func(u *user.User) {
		if req.Username != "" {
			u.Username = req.Username
		}
		if req.AvatarURL != "" {
			u.AvatarURL = req.AvatarURL
		}
	})
	if err != nil {
		return nil, err
	}
	return user.NewProfile(updated)
}

// DailyLogin grants the once-per-day reward. The session lock covers repeat
// calls within a session and the guard covers other sessions and instances.
// Nothing is granted unless the updated user was saved.
func (s *UserService) DailyLogin(ctx context.Context, sess *Session) (streak.Result, error) {
	if sess == nil {
		return streak.Result{}, apperr.ErrUnauthenticated
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	today := streak.Today(s.now())
	if sess.user.LastLogin == today {
		metrics.DailyLoginRewards.WithLabelValues("already_granted").Inc()
		return streak.Result{Granted: false}, nil
	}

	userID := sess.user.ID
	acquired, err := s.guard.Acquire(ctx, userID, today)
	if err != nil {
		log.Printf("DailyLogin: Guard unavailable for %s: %v", userID, err)
		return streak.Result{}, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if !acquired {
		// Another session claimed today. Pick up what it saved.
		if fresh, err := s.users.GetUser(ctx, userID); err == nil {
			sess.user = fresh
		}
		metrics.DailyLoginRewards.WithLabelValues("already_granted").Inc()
		return streak.Result{Granted: false}, nil
	}

	updated, result, err := streak.EvaluateDailyLogin(sess.user, today)
	if err != nil {
		s.releaseGuard(ctx, userID, today)
		return streak.Result{}, err
	}
	if !result.Granted {
		return result, nil
	}

	updated.UpdatedAt = s.now().UTC()
	if err := s.users.SaveUser(ctx, updated); err != nil {
		log.Printf("DailyLogin: Failed to save reward for %s: %v", userID, err)
		s.releaseGuard(ctx, userID, today)
		metrics.DailyLoginRewards.WithLabelValues("failed").Inc()
		return streak.Result{}, fmt.Errorf("%w: save user: %v", apperr.ErrPersistence, err)
	}
	sess.user = updated

	metrics.DailyLoginRewards.WithLabelValues("granted").Inc()
	metrics.XPCredited.WithLabelValues("daily_login").Add(float64(result.TotalXP))

	s.notify(ctx, notification.Reward{
		UserID: userID,
		Kind:   notification.KindDailyReward,
		XP:     result.TotalXP,
		Streak: result.Streak,
	})

	return result, nil
}

// Credit describes a reward added to a user's balances.
type Credit struct {
	XP             int
	Tokens         int
	TasksCompleted int
	Source         string
}

// CreditReward adds c to the session's user and saves it. On failure the
// session keeps its previous, confirmed state.
func (s *UserService) CreditReward(ctx context.Context, sess *Session, c Credit) (*user.User, error) {
	if c.XP < 0 || c.Tokens < 0 || c.TasksCompleted < 0 {
		return nil, fmt.Errorf("%w: negative credit", apperr.ErrInvalidArgument)
	}

	updated, err := s.apply(ctx, sess, func(u *user.User) {
		u.XP += c.XP
		u.Tokens += c.Tokens
		u.TasksCompleted += c.TasksCompleted
	})
	if err != nil {
		return nil, err
	}

	metrics.XPCredited.WithLabelValues(c.Source).Add(float64(c.XP))
	metrics.TokensCredited.WithLabelValues(c.Source).Add(float64(c.Tokens))
	return updated, nil
}

func (s *UserService) apply(ctx context.Context, sess *Session, mutate func(u *user.User)) (*user.User, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	updated := sess.user.Clone()
	mutate(updated)
	updated.UpdatedAt = s.now().UTC()

	if err := s.users.SaveUser(ctx, updated); err != nil {
		log.Printf("UserService: Failed to save user %s: %v", updated.ID, err)
		return nil, fmt.Errorf("%w: save user: %v", apperr.ErrPersistence, err)
	}

	sess.user = updated
	return updated.Clone(), nil
}

func (s *UserService) releaseGuard(ctx context.Context, userID, day string) {
	if err := s.guard.Release(ctx, userID, day); err != nil {
		log.Printf("DailyLogin: Failed to release guard for %s on %s: %v", userID, day, err)
	}
}

func (s *UserService) notify(ctx context.Context, r notification.Reward) {
	if err := s.notifier.NotifyReward(ctx, r); err != nil {
		log.Printf("Notification: Failed to deliver %s to %s: %v", r.Kind, r.UserID, err)
	}
}
