package session

import (
	"context"
	"time"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
)

// Authenticator exchanges credentials for a token; *client.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Keeper holds a session open for unattended processes. It logs in when the
// store is empty and again, after Delay, every time the session ends.
type Keeper struct {
	Store    *Store
	Auth     Authenticator
	Username string
	Password string
	Delay    time.Duration
}

// Run blocks until ctx is done.
func (k *Keeper) Run(ctx context.Context) {
	log := logging.With("session")
	if k.Delay <= 0 {
		k.Delay = 5 * time.Second
	}

	ended := make(chan struct{}, 1)
	unsubscribe := k.Store.Subscribe(func(c Change) {
		if c.Ended() {
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if _, ok := k.Store.Get(); !ok {
		k.login(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ended:
			log.Warn().Dur("delay", k.Delay).Msg("Session ended, logging in again")
			if !sleep(ctx, k.Delay) {
				return
			}
			if _, ok := k.Store.Get(); ok {
				continue
			}
			k.login(ctx)
		}
	}
}

// login retries every Delay until it succeeds or ctx ends.
func (k *Keeper) login(ctx context.Context) {
	log := logging.With("session")
	for attempt := 1; ; attempt++ {
		token, err := k.Auth.Login(ctx, k.Username, k.Password)
		if err == nil {
			if err = k.Store.Set(token); err == nil {
				log.Info().Str("user", k.Username).Int("attempt", attempt).Msg("Logged in")
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Int("attempt", attempt).Dur("retry_in", k.Delay).Msg("Login failed")
		if !sleep(ctx, k.Delay) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
