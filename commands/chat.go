package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/formatter"
	"github.com/penwyp/go-metrobus/internal/util"
)

// ChatUserID identifies the CLI to the assistant.
const ChatUserID = "user"

var chatAt string

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the journey assistant",
	Example: `  go-metrobus chat "When is the next bus to the airport?"
  go-metrobus chat "Fastest way to the stadium" --at 17:45`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChatCmd,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatAt, "at", "", "Preferred travel time HH:MM")
}

// Assistant is the part of the API client used by chat.
type Assistant interface {
	Chat(ctx context.Context, msg model.ChatMessage) (*model.ChatResponse, error)
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s := openSession(ctx, cfg)
	defer s.close()

	return chat(ctx, cmd.OutOrStdout(), s.api, s.tracker, strings.Join(args, " "), chatAt, util.GetTimeProvider().Now())
}

// chat logs the outgoing message, asks the assistant and logs its answer.
// at is HH:MM and optional.
func chat(ctx context.Context, w io.Writer, assistant Assistant, events EventLogger, message, at string, now time.Time) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.New("message must not be empty")
	}

	preferred := ""
	if strings.TrimSpace(at) != "" {
		t, err := clockTime(at, now)
		if err != nil {
			return err
		}
		preferred = t
	}

	events.Log(ctx, model.EventUserMessageSent, model.ChatSentDetails{
		Message:       message,
		PreferredTime: strings.TrimSpace(at),
		Timestamp:     now.UTC().Format(time.RFC3339Nano),
	}, "")

	resp, err := assistant.Chat(ctx, model.ChatMessage{
		Message:       message,
		UserID:        ChatUserID,
		PreferredTime: preferred,
	})
	if err != nil {
		return fmt.Errorf("assistant unavailable: %w", err)
	}

	events.Log(ctx, model.EventBotMessageReceived, model.ChatReceivedDetails{
		Response:        resp.Response,
		RouteSuggestion: resp.RouteSuggestion,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}, "")

	formatter.WriteChat(w, resp)
	return nil
}
