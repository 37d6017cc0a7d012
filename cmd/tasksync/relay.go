package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sandeepkv93/tasksync/internal/relay"
	"github.com/spf13/cobra"
)

func relayCmd(flags *globalFlags) *cobra.Command {
	var addr, upstream, transcriptPath string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the chat relay (POST /api/chat)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.Relay.Addr
			}
			if upstream == "" {
				upstream = a.cfg.Relay.UpstreamURL
			}
			if transcriptPath == "" {
				transcriptPath = a.cfg.Relay.TranscriptPath
			}

			var transcript *relay.Transcript
			if transcriptPath != "" {
				transcript, err = relay.OpenTranscript(transcriptPath)
				if err != nil {
					return err
				}
				defer transcript.Close()
			}
			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := relay.NewServer(relay.Options{
				UpstreamURL: upstream,
				Transcript:  transcript,
				Logger:      a.logger.WithPrefix("relay"),
			})
			return srv.Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default relay.addr)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "upstream chat endpoint (default relay.upstream_url)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "sqlite transcript path (default relay.transcript_path)")
	return cmd
}
