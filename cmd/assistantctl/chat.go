package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/dto"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatShowMeta bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant as a customer",
	Long: `Starts an interactive conversation. Every line is sent as one customer
message; an empty line or "salir" ends the session.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Stream a knowledge-base answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	chatCmd.Flags().BoolVar(&chatShowMeta, "meta", false, "print intent and route metadata")
	rootCmd.AddCommand(chatCmd, askCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conversationID := "cli-" + uuid.NewString()
	user := color.New(color.FgCyan, color.Bold)
	bot := color.New(color.FgGreen)
	meta := color.New(color.FgHiBlack)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		user.Fprint(cmd.OutOrStdout(), "tú> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.EqualFold(text, "salir") {
			return nil
		}

		res, err := container.AssistantService.ProcessMessage(ctx, &dto.ProcessMessageRequest{
			ConversationId: conversationID,
			Text:           text,
			VendorId:       vendorID,
			UserId:         "cli",
		})
		if err != nil {
			color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}

		bot.Fprintf(cmd.OutOrStdout(), "asistente> %s\n", res.Message.Content)
		if chatShowMeta {
			meta.Fprintf(cmd.OutOrStdout(), "  intent=%v route=%v confidence=%v\n",
				res.Message.Metadata["intent"], res.Message.Metadata["route"], res.Message.Metadata["confidence"])
		}
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tokens, err := container.RagService.StreamAnswer(ctx, &dto.StreamAnswerRequest{Question: args[0], VendorId: vendorID})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for tok := range tokens {
		if tok.Fallback {
			color.New(color.FgYellow).Fprint(out, tok.Text)
			continue
		}
		fmt.Fprint(out, tok.Text)
	}
	fmt.Fprintln(out)
	return nil
}
