package config

// PromptPair is the content of a system and a user prompt loaded from files.
type PromptPair struct {
	System string
	User   string
}

// LoadedPrompts holds the content of prompts loaded from files
type LoadedPrompts struct {
	Global  PromptPair
	Analyze PromptPair
}

// Prompts returns a copy of the prompts loaded from files.
func (c *Config) Prompts() LoadedPrompts {
	return c.prompts
}

// Count returns how many prompts were loaded.
func (lp LoadedPrompts) Count() int {
	count := 0
	for _, p := range []string{lp.Global.System, lp.Global.User, lp.Analyze.System, lp.Analyze.User} {
		if p != "" {
			count++
		}
	}
	return count
}
