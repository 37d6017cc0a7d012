package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sandeepkv93/tasksync/internal/relay"
	"github.com/spf13/cobra"
)

func chatCmd(flags *globalFlags) *cobra.Command {
	var relayURL, sessionID string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to the assistant through the chat relay",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.context(cmd.Context())
			s, err := a.resume(ctx)
			cancel()
			if err != nil {
				return err
			}
			defer s.End()

			token, err := a.tokens.Token(cmd.Context())
			if err != nil {
				return err
			}
			if relayURL == "" {
				relayURL = localURL(a.cfg.Relay.Addr)
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			a.logger.Debug("sending chat message", "relay", relayURL, "session_id", sessionID)

			// The relay client carries its own, longer timeout.
			reply, err := relay.NewClient(relayURL, token).Send(cmd.Context(), s.User.ID, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), relay.ReplyText(reply))
			fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&relayURL, "relay", "", "relay base URL (default derived from relay.addr)")
	cmd.Flags().StringVar(&sessionID, "session", "", "conversation id to continue (new one when empty)")
	return cmd
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
