package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CBState is the position of a CircuitBreaker.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen: the guarded dependency failed too often and is being skipped.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrCircuitProbe: another caller is already testing the dependency.
	ErrCircuitProbe = errors.New("circuit breaker is probing")
)

type CircuitBreakerConfig struct {
	// Nombre identifies the guarded dependency in logs
	Nombre string
	// FailureThreshold consecutive failures open the breaker (default 5)
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it (default 2)
	SuccessThreshold int
	// OpenTimeout is the wait before a probe is allowed (default 60s)
	OpenTimeout time.Duration
}

// DefaultCBConfig is what the SMTP relay uses.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nombre:           "smtp",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}
}

// CircuitBreaker fails fast while a dependency is down so receipt emails go to
// the DLQ instead of holding workers on connection timeouts. Half-open admits
// a single probe at a time.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     CBState
	fallos    int
	exitos    int
	abiertoEn time.Time
	sondeando bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.estadoActual()
}

// estadoActual moves open to half-open once OpenTimeout has elapsed. Caller
// holds mu.
func (cb *CircuitBreaker) estadoActual() CBState {
	if cb.state == CBOpen && time.Since(cb.abiertoEn) >= cb.cfg.OpenTimeout {
		cb.pasarA(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the breaker is open or a probe is in flight.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.estadoActual() {
	case CBOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case CBHalfOpen:
		if cb.sondeando {
			cb.mu.Unlock()
			return ErrCircuitProbe
		}
		cb.sondeando = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.sondeando = false
	if err != nil {
		cb.registrarFallo()
		return err
	}
	cb.registrarExito()
	return nil
}

func (cb *CircuitBreaker) registrarFallo() {
	cb.fallos++
	switch cb.state {
	case CBClosed:
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.pasarA(CBOpen)
		}
	case CBHalfOpen:
		cb.pasarA(CBOpen)
	}
}

func (cb *CircuitBreaker) registrarExito() {
	switch cb.state {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.pasarA(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) pasarA(s CBState) {
	if cb.state == s {
		return
	}
	log.Warn().
		Str("breaker", cb.cfg.Nombre).
		Str("de", cb.state.String()).
		Str("a", s.String()).
		Int("fallos", cb.fallos).
		Msg("circuit breaker transition")
	cb.state = s
	cb.fallos = 0
	cb.exitos = 0
	if s == CBOpen {
		cb.abiertoEn = time.Now()
	}
}
