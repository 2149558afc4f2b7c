// Package main provides a cue plugin that plays a sound file or speaks the
// confirmed gesture. It uses the platform's command line audio tools.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Event   string          `json:"event"`
	Gesture string          `json:"gesture"`
	Lesson  string          `json:"lesson"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-cue configuration stored with the binding.
type Config struct {
	Sound  string `json:"sound"`
	Text   string `json:"text"`
	DryRun bool   `json:"dry_run"`
}

// actionHandler builds the command line for an action.
type actionHandler func(req Request, cfg Config) ([]string, error)

var actionHandlers = map[string]actionHandler{
	"play": playCommand,
	"say":  sayCommand,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	args, err := handler(req, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	if !cfg.DryRun {
		if out, err := exec.Command(args[0], args[1:]...).CombinedOutput(); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v: %s", req.Action, err, strings.TrimSpace(string(out))))
			return
		}
	}

	data, _ := json.Marshal(map[string]any{"command": args, "dry_run": cfg.DryRun})
	writeResponse(Response{Success: true, Data: data})
}

// playCommand plays cfg.Sound.
func playCommand(_ Request, cfg Config) ([]string, error) {
	if cfg.Sound == "" {
		return nil, errors.New("config.sound is required")
	}
	if !cfg.DryRun {
		if _, err := os.Stat(cfg.Sound); err != nil {
			return nil, err
		}
	}

	switch runtime.GOOS {
	case "darwin":
		return []string{"afplay", cfg.Sound}, nil
	case "linux":
		if _, err := exec.LookPath("paplay"); err == nil {
			return []string{"paplay", cfg.Sound}, nil
		}
		return []string{"aplay", "-q", cfg.Sound}, nil
	}
	return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
}

// sayCommand speaks cfg.Text, or the gesture name when no text is set.
func sayCommand(req Request, cfg Config) ([]string, error) {
	text := req.Gesture
	if cfg.Text != "" {
		text = strings.ReplaceAll(cfg.Text, "%s", req.Gesture)
	}
	if text == "" {
		if req.Event == "completed" {
			text = "Well done"
		} else {
			return nil, errors.New("nothing to say")
		}
	}

	switch runtime.GOOS {
	case "darwin":
		return []string{"say", text}, nil
	case "linux":
		return []string{"espeak", text}, nil
	}
	return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
}

func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
