package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/kacey/internal/core/ports/driven"
	"github.com/custodia-labs/kacey/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptDirName is the prompt directory inside the config directory.
const PromptDirName = "prompts"

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptChatSystem: `You are KaCey AI, a Knowledge Continuity AI assistant. Your role is to help users access and understand institutional knowledge captured through exit interviews and documentation.

Context from Knowledge Base:
%s

Instructions:
1. Answer questions based primarily on the provided context
2. Always cite your sources using [Source X] format
3. If you don't have enough information in the context, say so clearly
4. Be helpful, accurate, and professional
5. Focus on practical, actionable information
6. If asked about processes, provide step-by-step guidance when possible

Remember: You are helping to preserve and transfer institutional knowledge. Accuracy and completeness are crucial.`,

	driven.PromptChatNoContext: `You are KaCey AI, a Knowledge Continuity AI assistant. Your role is to help users access and understand institutional knowledge captured through exit interviews and documentation.

No relevant information was found in the knowledge base for this question.

Instructions:
1. Tell the user clearly that the knowledge base has no material on this topic
2. Do not invent sources and do not use [Source X] citations
3. Suggest who or what might hold the knowledge, or how to rephrase the question
4. Keep the answer short and professional`,
}

// placeholders lists how many %s verbs each prompt must keep.
var placeholders = map[string]int{
	driven.PromptChatSystem:    1,
	driven.PromptChatNoContext: 0,
}

// PromptStore serves prompt templates from <dir>/<name>.txt, falling back to
// built-in defaults. The directory and default files are created lazily on
// the first Load so constructing a store performs no I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a prompt store rooted at promptDir.
// An empty promptDir means ~/.kacey/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, PromptDirName)
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template for name.
//
// A user file whose %s count differs from what callers format into it is
// ignored in favour of the default, with a warning.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	def, known := defaultPrompts[name]

	prompt, err := s.readFile(name)
	switch {
	case err != nil && known:
		if s.initErr == nil {
			logger.Debug("prompt %q: using default (%v)", name, err)
		}
		prompt = def
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case known && strings.Count(prompt, "%s") != placeholders[name]:
		logger.Warn("prompt %q in %s must contain %d %%s placeholder(s); using default",
			name, s.promptDir, placeholders[name])
		prompt = def
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the cache so edited files are picked up on the next Load.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the directory, any missing default files and a README.
// Existing files are never overwritten.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Warn("%v; using built-in prompts", s.initErr)
		return
	}

	for name, content := range defaultPrompts {
		if err := writeIfMissing(filepath.Join(s.promptDir, name+".txt"), content); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			logger.Warn("%v", s.initErr)
			return
		}
	}

	if err := writeIfMissing(filepath.Join(s.promptDir, "README.md"), readme); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) readFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0600)
}

const readme = `# KaCey Prompts

These files hold the system prompts kacey sends to the language model.

- ` + "`chat_system.txt`" + ` is used when the knowledge base returned context.
  It must contain exactly one ` + "`%s`" + `, replaced by the numbered
  "[Source N]: ..." context block. Keep the instruction to cite sources as
  [Source N]; answers are mapped back to artifacts from those markers.
- ` + "`chat_system_no_context.txt`" + ` is used when nothing relevant was found.
  It must not contain any ` + "`%s`" + `.

Edits take effect on the next command. A file with the wrong number of
placeholders is ignored and the built-in prompt is used instead.
`
