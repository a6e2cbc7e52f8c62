package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
)

// newAPIClient builds a client from the resolved settings.
func newAPIClient(s config.Settings) *client.Client {
	return client.New(client.ClientConfig{
		BaseURL: s.APIURL,
		Timeout: s.RequestTimeout,
	})
}

// loadSession returns a store backed by the config file, restored from disk.
func loadSession() (*session.Store, *config.SessionFile) {
	file := config.NewSessionFile(nil)
	store := session.NewStore(file)
	if err := store.Load(); err != nil {
		fmt.Printf("Error reading saved session: %v\n", err)
		os.Exit(1)
	}
	return store, file
}

// requireSession exits unless a token is saved.
func requireSession() (*session.Store, string) {
	store, _ := loadSession()
	token, ok := store.Get()
	if !ok {
		fmt.Println("Error: Not logged in. Please run 'cctv-cli login' first.")
		os.Exit(1)
	}
	return store, token
}

// describeError turns a client error into the message shown to the operator.
func describeError(err error) string {
	var verr *client.ValidationError
	var srvErr *client.ServerError
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "Not logged in. Please run 'cctv-cli login' first."
	case errors.As(err, &verr):
		return verr.Reason
	case client.IsUnauthorized(err):
		return "Session expired. Please run 'cctv-cli login' again."
	case client.Classify(err) == client.KindNetwork:
		return fmt.Sprintf("Backend unreachable: %v", err)
	case errors.As(err, &srvErr) && srvErr.Detail != "":
		return srvErr.Detail
	default:
		return err.Error()
	}
}

func fail(prefix string, err error) {
	fmt.Printf("%s: %s\n", prefix, describeError(err))
	os.Exit(1)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSON(v any) {
	if err := writeJSON(os.Stdout, v); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
