// ABOUTME: Launches the user's editor on a temporary markdown file.
// ABOUTME: Honors $VISUAL, then $EDITOR, including editors given with arguments.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const defaultEditor = "vim"

// editorCommand splits $VISUAL or $EDITOR into a program and its arguments,
// so values like "code --wait" work.
func editorCommand() (string, []string) {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
			return fields[0], fields[1:]
		}
	}
	return defaultEditor, nil
}

func openEditor(initial string) (string, error) {
	tmpFile, err := os.CreateTemp("", "marknote-*.md")
	if err != nil {
		return "", err
	}
	path := tmpFile.Name()
	defer func() {
		_ = os.Remove(path)
	}()

	_, writeErr := tmpFile.WriteString(initial)
	if err := errors.Join(writeErr, tmpFile.Close()); err != nil {
		return "", fmt.Errorf("failed to prepare temp file: %w", err)
	}

	name, args := editorCommand()
	cmd := exec.Command(name, append(args, path)...) //nolint:gosec // Launching $EDITOR is expected CLI behavior
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // Path comes from os.CreateTemp
	if err != nil {
		return "", err
	}
	return string(data), nil
}
