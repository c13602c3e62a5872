package commands

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parley/internal/client"
	"parley/internal/crypto"
	"parley/internal/logging"
	"parley/internal/protocol"
)

// chat --server URL --name NAME [--key FILE] [--id N]: connect, login, and
// run the interactive control loop.
func chatCmd() *cobra.Command {
	var (
		serverURL string
		name      string
		id        int64
		timeout   time.Duration
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Connect to a relay and chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = randomName()
				fmt.Printf("Account name: %s\n", name)
			}
			if keyFile == "" {
				keyFile = name + ".key"
			}

			priv, _, err := loadOrCreateKey(keyFile)
			if err != nil {
				return err
			}

			profilePath := name + ".profile.json"
			profile, err := client.LoadProfile(profilePath)
			if err != nil {
				return err
			}
			if id == 0 {
				id = profile.ID
			}

			logBackend, err := logging.New("", logLevel, false)
			if err != nil {
				return err
			}

			ctx := context.Background()
			ctl, err := client.Dial(ctx, client.Config{
				ServerURL:  serverURL,
				Name:       name,
				ID:         id,
				Key:        priv,
				Timeout:    timeout,
				LogBackend: logBackend,
			})
			if err != nil {
				return err
			}
			defer ctl.Close()

			status, err := ctl.Login(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Notice: [%s]\n", status)

			if err := client.SaveProfile(profilePath, client.Profile{Name: name, ID: ctl.ID()}); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save profile: %v\n", err)
			}

			return controlLoop(ctx, ctl)
		},
	}
	cmd.Flags().StringVarP(&serverURL, "server", "s", "ws://127.0.0.1:50000/ws", "relay websocket URL")
	cmd.Flags().StringVarP(&name, "name", "n", "", "account name (default: random)")
	cmd.Flags().Int64Var(&id, "id", 0, "identity id from a previous registration")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "per-request response timeout")
	cmd.Flags().StringVar(&logLevel, "log-level", "WARNING", "log level")
	return cmd
}

// controlLoop reads stdin line by line: plain lines post to the current
// receiver; "#function" opens the menu (userlist, setreceiver, logout).
func controlLoop(ctx context.Context, ctl *client.Controller) error {
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("Send to [%s]: ", ctl.ReceiverName())
		if !in.Scan() {
			return ctl.Logout(ctx)
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if line == "#function" {
			printFunctions()
			if !in.Scan() {
				return ctl.Logout(ctx)
			}
			switch strings.TrimSpace(in.Text()) {
			case "logout":
				return ctl.Logout(ctx)
			case "userlist":
				printRoster(ctl)
			case "setreceiver":
				setReceiver(in, ctl)
			default:
				fmt.Println("Format Error")
			}
			continue
		}

		ack, err := ctl.Post(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "post: %v\n", err)
			continue
		}
		if _, err := ack.Wait(ctx); errors.Is(err, client.ErrTimeout) {
			fmt.Fprintln(os.Stderr, "warning: post was not acknowledged in time")
		} else if err != nil {
			return err
		}
	}
}

func printFunctions() {
	fmt.Print(strings.Repeat("-", 10) +
		"\nFunctions:" +
		"\nuserlist    - Load online user list." +
		"\nsetreceiver - Set communication receiver." +
		"\nlogout      - Logging out of login status." +
		"\n" + strings.Repeat("-", 10) + "\n#")
}

func printRoster(ctl *client.Controller) {
	fmt.Println("+ Online Users:")
	for i, rec := range ctl.Roster() {
		fmt.Printf("| User %d: %s (id=%d)\n", i+1, rec.Name, rec.ID)
	}
}

func setReceiver(in *bufio.Scanner, ctl *client.Controller) {
	roster := ctl.Roster()
	fmt.Println("User[0]: #Everyone")
	for i, rec := range roster {
		fmt.Printf("User[%d]: %s (id=%d)\n", i+1, rec.Name, rec.ID)
	}
	fmt.Print("Receiver index: ")
	if !in.Scan() {
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(in.Text()))
	if err != nil || idx < 0 || idx > len(roster) {
		fmt.Println("Set Receiver Failed")
		return
	}
	if idx == 0 {
		_ = ctl.SetReceiver(protocol.EveryoneID)
		fmt.Println("Set Receiver #Everyone Succeeded")
		return
	}
	if err := ctl.SetReceiver(roster[idx-1].ID); err != nil {
		fmt.Println("Set Receiver Failed:", err)
		return
	}
	fmt.Printf("Set Receiver %s Succeeded\n", roster[idx-1].Name)
}

// loadOrCreateKey loads the key file, generating and saving a fresh pair
// when the file does not exist yet.
func loadOrCreateKey(path string) (crypto.PrivateKey, crypto.PublicKey, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		priv, pub, err := crypto.GenerateKeyPair()
		if err != nil {
			return crypto.PrivateKey{}, crypto.PublicKey{}, err
		}
		if err := crypto.SaveKeyFile(path, priv); err != nil {
			return crypto.PrivateKey{}, crypto.PublicKey{}, err
		}
		fmt.Printf("Key file %q saved\n", path)
		return priv, pub, nil
	}
	return crypto.LoadKeyFile(path)
}

func randomName() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return "user-" + hex.EncodeToString(b)
}
