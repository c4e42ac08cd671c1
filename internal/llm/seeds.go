package llm

import (
	"bufio"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strings"
)

// defaultPrompts are the built-in image caption style seeds used when no
// prompts file is configured.
var defaultPrompts = []string{
	"What's the first thing you notice? Be honest",
	"Rate the vibe 1-10",
	"What kind of mood does this give off?",
	"Thoughts? Be real with me",
	"Create a short, engaging caption for this image",
}

// defaultStories are the built-in text post seed ideas used when no stories
// file is configured.
var defaultStories = map[string][]string{
	"story":        {"My friend did something weird today...", "Today I realized...", "So this happened..."},
	"question":     {"Would you ever do X?", "What would you do if...", "Do you think..."},
	"hot_take":     {"Unpopular opinion but...", "Hot take: ...", "I know this is controversial but..."},
	"absurd":       {"If my cat could talk...", "Plot twist: ...", "Imagine if..."},
	"relatable":    {"Anyone else...", "Me when...", "The way I..."},
	"motivational": {"If you're reading this, remember...", "You got this...", "Just a reminder..."},
}

// Seeds holds the caption style prompts and text post story ideas that
// seed generation requests.
type Seeds struct {
	Prompts []string
	Stories map[string][]string
}

// LoadSeeds reads the prompts and stories files. Missing or empty files
// fall back to the built-in defaults with a log line, never an error.
func LoadSeeds(logger *slog.Logger, promptsFile, storiesFile string) Seeds {
	if logger == nil {
		logger = slog.Default()
	}
	s := Seeds{}

	s.Prompts = loadLines(promptsFile)
	if len(s.Prompts) == 0 {
		s.Prompts = defaultPrompts
		logger.Info("using default caption prompts", "file", promptsFile)
	} else {
		logger.Info("loaded caption prompts", "file", promptsFile, "count", len(s.Prompts))
	}

	s.Stories = loadStories(storiesFile)
	if len(s.Stories) == 0 {
		s.Stories = defaultStories
		logger.Info("using default story seeds", "file", storiesFile)
	} else {
		total := 0
		for _, examples := range s.Stories {
			total += len(examples)
		}
		logger.Info("loaded story seeds", "file", storiesFile, "count", total, "categories", len(s.Stories))
	}

	return s
}

// RandomPrompt picks a caption style prompt.
func (s Seeds) RandomPrompt(rng *rand.Rand) string {
	return s.Prompts[rng.Intn(len(s.Prompts))]
}

// RandomStory picks a story seed, returning its category and example.
func (s Seeds) RandomStory(rng *rand.Rand) (category, example string) {
	categories := make([]string, 0, len(s.Stories))
	for c := range s.Stories {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	category = categories[rng.Intn(len(categories))]
	examples := s.Stories[category]
	return category, examples[rng.Intn(len(examples))]
}

// loadLines reads one entry per line, skipping blanks and # comments.
func loadLines(path string) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// loadStories reads "category: example" lines grouped by category.
func loadStories(path string) map[string][]string {
	stories := make(map[string][]string)
	for _, line := range loadLines(path) {
		category, example, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		category = strings.TrimSpace(category)
		example = strings.TrimSpace(example)
		if category == "" || example == "" {
			continue
		}
		stories[category] = append(stories[category], example)
	}
	if len(stories) == 0 {
		return nil
	}
	return stories
}
