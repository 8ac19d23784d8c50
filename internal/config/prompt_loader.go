package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile names one configurable prompt file and where its content goes.
type promptFile struct {
	path   string
	scope  string // "global" or "analyze"
	kind   string // "system" or "user"
	target *string
}

func (c *Config) promptFiles() []promptFile {
	return []promptFile{
		{c.AI.CustomPrompts.SystemPromptFile, "global", "system", &c.prompts.Global.System},
		{c.AI.CustomPrompts.UserPromptFile, "global", "user", &c.prompts.Global.User},
		{c.AI.Analyze.CustomPrompts.SystemPromptFile, "analyze", "system", &c.prompts.Analyze.System},
		{c.AI.Analyze.CustomPrompts.UserPromptFile, "analyze", "user", &c.prompts.Analyze.User},
	}
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	for _, pf := range c.promptFiles() {
		if pf.path == "" {
			continue
		}
		content, err := loadPromptFromFile(pf.path, pf.kind, pf.scope)
		if err != nil {
			return err
		}
		*pf.target = content
	}

	if count := c.prompts.Count(); count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, scope string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", scope, promptType, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", scope, promptType, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", scope, promptType, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", scope, promptType, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		scope, promptType, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, pf := range c.promptFiles() {
		if pf.path == "" {
			continue
		}
		absPath, err := filepath.Abs(pf.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", pf.scope, pf.kind, pf.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", pf.scope, pf.kind, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
