package utils

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// AskLine prompts on stdout and reads one trimmed, non-empty line from
// stdin. Cancellation of ctx aborts the wait.
func AskLine(ctx context.Context, prompt string) (string, error) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		inputCh := make(chan string, 1)

		fmt.Print(prompt)
		go func() {
			if scanner.Scan() {
				inputCh <- strings.TrimSpace(scanner.Text())
			}
		}()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line := <-inputCh:
			if line != "" {
				return line, nil
			}
			fmt.Println("Nothing entered. Please try again.")
		}
	}
}
