package registration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes a plain-text rendering of s to w.
func Render(w io.Writer, s State) error {
	var b strings.Builder

	nav := "View User List"
	if s.View == UserList {
		nav = "Back to Register"
	}
	fmt.Fprintf(&b, "[%s]\n\n", nav)

	switch s.View {
	case UserList:
		if err := renderUsers(&b, s); err != nil {
			return err
		}
	default:
		renderForm(&b, s)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderForm(b *strings.Builder, s State) {
	b.WriteString("User Registration\n")

	email := s.Email
	if email == "" {
		email = "(example@email.com)"
	}
	fmt.Fprintf(b, "  Email:    %s\n", email)

	pw := "(" + s.PasswordHint + ")"
	if s.Password != "" {
		pw = strings.Repeat("*", len([]rune(s.Password)))
	}
	fmt.Fprintf(b, "  Password: %s\n", pw)

	button := "Register"
	if s.Busy {
		button = "Registering..."
	}
	fmt.Fprintf(b, "  [%s]\n", button)

	if s.Message.Text != "" {
		fmt.Fprintf(b, "\n%s: %s\n", s.Message.Kind, s.Message.Text)
	}
}

func renderUsers(b *strings.Builder, s State) error {
	b.WriteString("Registered Users\n")

	if len(s.Users) == 0 {
		b.WriteString("No users registered yet.\n")
	} else {
		tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEmail\tPassword")
		for _, u := range s.Users {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Email, u.Password)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	b.WriteString("\n[Refresh List]\n")
	return nil
}
