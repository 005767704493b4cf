package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Identity:
		o.printIdentity(v)
	case AuthResult:
		o.printAuthResult(v)
	case ContactsResult:
		o.printContactsResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Identity response type (matches API)
type Identity struct {
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

// AuthResult combines identity and token
type AuthResult struct {
	Identity     Identity `json:"identity"`
	SessionToken string   `json:"session_token"`
}

// ContactsResult response type
type ContactsResult struct {
	Contacts []string `json:"contacts"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printIdentity(i Identity) {
	fmt.Printf("Username: %s\n", i.Username)
	fmt.Printf("PIN: %s\n", i.Pin)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printIdentity(a.Identity)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printContactsResult(c ContactsResult) {
	if len(c.Contacts) == 0 {
		fmt.Println("No contacts yet")
		return
	}
	fmt.Printf("Contacts (%d):\n", len(c.Contacts))
	for _, pin := range c.Contacts {
		fmt.Printf("  - %s\n", pin)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
