package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aloks98/userreg/registration"
)

const helpText = `Commands:
  email <address>     set the email field
  password <secret>   set the password field (spaces are kept)
  submit              register with the current fields
  toggle              switch between the form and the user list
  refresh             re-fetch the user list
  show                redraw the current view
  help                show this help
  quit                exit
`

type repl struct {
	ctrl *registration.Controller
	in   *bufio.Scanner
	out  io.Writer
}

func newREPL(ctrl *registration.Controller, in io.Reader, out io.Writer) *repl {
	return &repl{ctrl: ctrl, in: bufio.NewScanner(in), out: out}
}

// Run reads commands until quit, end of input or ctx cancellation.
func (r *repl) Run(ctx context.Context) error {
	r.render()
	fmt.Fprint(r.out, "Type 'help' for commands.\n")

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}

		// The password argument is everything after the first space, verbatim.
		cmd, arg, _ := strings.Cut(strings.TrimLeft(r.in.Text(), " \t"), " ")

		switch strings.ToLower(strings.TrimSpace(cmd)) {
		case "":
		case "email":
			r.ctrl.SetEmail(strings.TrimSpace(arg))
		case "password":
			r.ctrl.SetPassword(arg)
		case "submit":
			if r.ctrl.View() != registration.RegisterForm {
				fmt.Fprintln(r.out, "submit is only available in the registration form")
				continue
			}
			if _, err := r.ctrl.Submit(ctx); err != nil {
				r.reportSubmitError(err)
				continue
			}
			r.render()
		case "toggle":
			r.ctrl.ToggleView(ctx)
			r.render()
		case "refresh":
			if r.ctrl.View() != registration.UserList {
				fmt.Fprintln(r.out, "refresh is only available in the user list")
				continue
			}
			_ = r.ctrl.Refresh(ctx)
			r.render()
		case "show":
			r.render()
		case "help":
			fmt.Fprint(r.out, helpText)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(r.out, "unknown command %q, type 'help'\n", cmd)
		}
	}
}

func (r *repl) reportSubmitError(err error) {
	switch {
	case errors.Is(err, registration.ErrBusy):
		fmt.Fprintln(r.out, "a registration is already in progress")
	case errors.Is(err, registration.ErrIncompleteInput):
		fmt.Fprintln(r.out, "enter a valid email and a password first")
	default:
		fmt.Fprintln(r.out, err)
	}
}

func (r *repl) render() {
	if err := registration.Render(r.out, r.ctrl.State()); err != nil {
		fmt.Fprintln(r.out, err)
	}
}
