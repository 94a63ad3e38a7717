package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe a voice recording",
	Long: `Print a verbatim transcript of an audio file. The mime type is taken from
the file extension. Only the Gemini backend supports transcription.

To send a recording to a mode directly use: repomech ask --audio <file>

Example:
  repomech transcribe standup.webm`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	svc, _, err := newAnalysis(ctx, openStore(), openSettings().Get())
	if err != nil {
		return err
	}

	text, err := transcribeFile(ctx, svc, args[0])
	if err != nil {
		return fmt.Errorf("failed to transcribe: %w", err)
	}
	fmt.Println(text)
	return nil
}
