package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	// .env may carry PERSONACHAT_* overrides
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env file", "err", err)
	}

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("personachat command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cfgPath, conversationID string
	root := &cobra.Command{
		Use:           "personachat",
		Short:         "Terminal chat with selectable AI personas",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), cfgPath, conversationID)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	root.Flags().StringVar(&conversationID, "conversation", "", "conversation id to open")

	root.AddCommand(newPersonasCmd(&cfgPath))
	root.AddCommand(newConversationsCmd(&cfgPath))
	root.AddCommand(newHiddenCmd(&cfgPath))
	return root
}
