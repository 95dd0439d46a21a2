// Package registration holds the state of the registration front end: the
// form input, the last submission message, the current view and the most
// recently fetched user list. A Controller owns that state; callers drive it
// with user actions and render State snapshots.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/aloks98/userreg/client"
	"github.com/aloks98/userreg/internal/ctxlog"
)

// Fixed user-facing texts.
const (
	TextRejectedFallback = "Something went wrong"
	TextTransportFailure = "Failed to connect to server"
)

// DefaultMinPasswordLength is the length shown in the password hint.
const DefaultMinPasswordLength = 6

var (
	// ErrBusy is returned by Submit while another submission is in flight.
	ErrBusy = errors.New("submission already in progress")

	// ErrIncompleteInput is returned by Submit when a field is empty or the
	// email is not syntactically valid. No request is sent.
	ErrIncompleteInput = errors.New("email and password are required")
)

// View is the screen the front end shows.
type View int

const (
	RegisterForm View = iota
	UserList
)

func (v View) String() string {
	switch v {
	case RegisterForm:
		return "register"
	case UserList:
		return "list"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// MessageKind classifies a Message.
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessageSuccess
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageSuccess:
		return "success"
	case MessageError:
		return "error"
	default:
		return "none"
	}
}

// Message is the outcome of the last submission.
type Message struct {
	Text string
	Kind MessageKind
}

// Service is the remote user service. *client.Client implements it.
type Service interface {
	Register(ctx context.Context, email, password string) (string, error)
	ListUsers(ctx context.Context) ([]client.User, error)
}

// State is a snapshot of the controller.
type State struct {
	View     View
	Email    string
	Password string
	Message  Message
	Users    []client.User
	Busy     bool

	// PasswordHint is the placeholder shown in the empty password field.
	PasswordHint string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for list failures and submissions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMinPasswordLength sets the length advertised in the password hint.
// It is never enforced before submission.
func WithMinPasswordLength(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minPasswordLength = n
		}
	}
}

// Controller owns the front-end state. All methods are safe for concurrent
// use; the lock is never held across a network call.
type Controller struct {
	svc               Service
	logger            *slog.Logger
	validate          *validator.Validate
	minPasswordLength int

	mu       sync.Mutex
	view     View
	email    string
	password string
	message  Message
	users    []client.User
	busy     bool
}

// NewController creates a Controller in the RegisterForm view.
func NewController(svc Service, opts ...Option) *Controller {
	c := &Controller{
		svc:               svc,
		logger:            slog.Default(),
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		minPasswordLength: DefaultMinPasswordLength,
		users:             []client.User{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetEmail replaces the email field.
func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	c.email = email
	c.mu.Unlock()
}

// SetPassword replaces the password field.
func (c *Controller) SetPassword(password string) {
	c.mu.Lock()
	c.password = password
	c.mu.Unlock()
}

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// PasswordHint returns the placeholder for the password field.
func (c *Controller) PasswordHint() string {
	return fmt.Sprintf("Min %d characters", c.minPasswordLength)
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := make([]client.User, len(c.users))
	copy(users, c.users)
	return State{
		View:         c.view,
		Email:        c.email,
		Password:     c.password,
		Message:      c.message,
		Users:        users,
		Busy:         c.busy,
		PasswordHint: c.PasswordHint(),
	}
}

// Submit sends the current input to the service and records the outcome as
// the new Message, which it also returns. The returned error is non-nil only
// when no request was made (ErrBusy, ErrIncompleteInput).
func (c *Controller) Submit(ctx context.Context) (Message, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	email, password := c.email, c.password
	if err := c.checkInput(email, password); err != nil {
		c.mu.Unlock()
		return Message{}, err
	}
	c.busy = true
	c.message = Message{}
	c.mu.Unlock()

	logger := ctxlog.FromContextOr(ctx, c.logger)
	text, err := c.svc.Register(ctx, email, password)
	msg := submissionMessage(text, err)
	if err != nil {
		logger.InfoContext(ctx, "registration not accepted", "email", email, "error", err)
	} else {
		logger.InfoContext(ctx, "registration accepted", "email", email)
	}

	c.mu.Lock()
	c.busy = false
	c.message = msg
	if err == nil {
		c.email = ""
		c.password = ""
	}
	c.mu.Unlock()

	return msg, nil
}

func (c *Controller) checkInput(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrIncompleteInput
	}
	if err := c.validate.Var(strings.TrimSpace(email), "email"); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrIncompleteInput)
	}
	return nil
}

func submissionMessage(text string, err error) Message {
	if err == nil {
		return Message{Text: text, Kind: MessageSuccess}
	}

	var rej *client.RejectionError
	if errors.As(err, &rej) {
		if rej.Message == "" {
			return Message{Text: TextRejectedFallback, Kind: MessageError}
		}
		return Message{Text: rej.Message, Kind: MessageError}
	}
	return Message{Text: TextTransportFailure, Kind: MessageError}
}

// ListUsers fetches the user list and replaces the held list with it. On
// failure the held list and the message are left untouched and the error is
// only logged; it is returned for callers that want it. Overlapping calls are
// not coordinated, so the last to complete wins.
func (c *Controller) ListUsers(ctx context.Context) error {
	users, err := c.svc.ListUsers(ctx)
	if err != nil {
		ctxlog.FromContextOr(ctx, c.logger).WarnContext(ctx, "failed to fetch users", "error", err)
		return err
	}

	held := make([]client.User, len(users))
	copy(held, users)

	c.mu.Lock()
	c.users = held
	c.mu.Unlock()
	return nil
}

// Refresh re-fetches the user list. It is ListUsers under the name of the
// list view's refresh action.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.ListUsers(ctx)
}

// ToggleView switches between the form and the list. Entering the list
// fetches it first; the view switches whether or not the fetch succeeded.
// Leaving the list makes no request. It returns the new view.
func (c *Controller) ToggleView(ctx context.Context) View {
	c.mu.Lock()
	current := c.view
	if current == UserList {
		c.view = RegisterForm
		c.mu.Unlock()
		return RegisterForm
	}
	c.mu.Unlock()

	_ = c.ListUsers(ctx)

	c.mu.Lock()
	c.view = UserList
	c.mu.Unlock()
	return UserList
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}
