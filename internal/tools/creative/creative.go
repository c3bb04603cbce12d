// Package creative provides the story-development tools used by the creative
// writing agent.
//
// Three tools are exported via [Writer.Tools]:
//   - "generate_story_idea": picks a premise for a genre and theme.
//   - "create_character_profile": builds a structured character sheet.
//   - "suggest_plot_twist": proposes a twist for a situation and character.
//
// Selections are drawn from an injectable random source so tests can pin the
// output. A [Writer] is safe for concurrent use.
package creative

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// Tool names.
const (
	StoryIdeaName        = "generate_story_idea"
	CharacterProfileName = "create_character_profile"
	PlotTwistName        = "suggest_plot_twist"
)

// storyIdeas maps a lower-cased genre to premise templates. Each template
// takes the theme once.
var storyIdeas = map[string][]string{
	"science fiction": {
		"A story about time travelers who discover that %s is the key to preventing a cosmic disaster",
		"In a world where AI has achieved consciousness, a programmer must grapple with %s",
		"Colonists on Mars face an unexpected challenge that tests their understanding of %s",
	},
	"fantasy": {
		"A young mage discovers that their greatest weakness becomes their strength through %s",
		"In a realm where magic is fading, an unlikely hero must restore it by embracing %s",
		"Ancient dragons return to a medieval world, bringing lessons about %s",
	},
	"mystery": {
		"A detective solving a decades-old cold case uncovers truths about %s",
		"In a small town with dark secrets, a journalist investigates how %s changed everything",
		"A missing person case reveals a web of connections centered around %s",
	},
}

const fallbackIdea = "A compelling story exploring the depths of %s in an unexpected setting"

var backgrounds = []string{
	"grew up in a small coastal town",
	"was raised by their grandmother after their parents disappeared",
	"spent their childhood moving from city to city",
	"lived in the mountains with a reclusive family",
	"was trained from a young age in ancient traditions",
}

var motivations = map[string]string{
	"protagonist": "seeks to uncover the truth and protect those they love",
	"antagonist":  "believes their harsh methods are necessary for the greater good",
	"mentor":      "guides others while hiding a painful secret from their past",
	"sidekick":    "loyal and determined to prove their worth to their companions",
}

const defaultMotivation = "has complex motivations that drive their actions"

// twistTemplates render a twist from the character and the situation.
var twistTemplates = []func(character, situation string) string{
	func(c, s string) string {
		return fmt.Sprintf("Revelation: %s is revealed to be someone completely different than expected - their true identity changes everything about %s", c, s)
	},
	func(c, s string) string {
		return fmt.Sprintf("Betrayal: Someone %s trusted completely has been working against them throughout %s", c, s)
	},
	func(c, s string) string {
		return fmt.Sprintf("Hidden Connection: %s discovers they have a personal connection to the events in %s that they never knew about", c, s)
	},
	func(c, s string) string {
		return fmt.Sprintf("False Assumption: Everything %s believed about %s was based on a misunderstanding or deliberately planted misinformation", c, s)
	},
	func(c, s string) string {
		return fmt.Sprintf("Time Element: %s realizes that %s is connected to events from much earlier (or later) than they thought", c, s)
	},
	func(c, s string) string {
		return fmt.Sprintf("Moral Reversal: %s discovers that the 'right' choice in %s may actually cause more harm than good", c, s)
	},
}

// Writer owns the random source shared by the creative tools.
type Writer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Writer drawing from r. A nil r uses a randomly seeded PCG
// source.
func New(r *rand.Rand) *Writer {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Writer{rng: r}
}

// pick returns a uniformly chosen index in [0, n).
func (w *Writer) pick(n int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rng.IntN(n)
}

// StoryIdea returns a premise for genre and theme. Unknown genres fall back
// to a generic template.
func (w *Writer) StoryIdea(genre, theme string) string {
	ideas, ok := storyIdeas[strings.ToLower(genre)]
	if !ok {
		return fmt.Sprintf(fallbackIdea, theme)
	}
	return fmt.Sprintf(ideas[w.pick(len(ideas))], theme)
}

// CharacterProfile returns a five-section character sheet.
func (w *Writer) CharacterProfile(name, role, trait string) string {
	background := backgrounds[w.pick(len(backgrounds))]
	motivation, ok := motivations[strings.ToLower(role)]
	if !ok {
		motivation = defaultMotivation
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n**%s** - %s\n\n", name, capitalize(role))
	fmt.Fprintf(&b, "**Background**: %s %s. This shaped their worldview and gave them a unique perspective on life's challenges.\n\n", name, background)
	fmt.Fprintf(&b, "**Personality**: Primarily %s, %s approaches situations with a distinctive style that often surprises others. They have learned to use this trait both as a strength and sometimes struggle with how it affects their relationships.\n\n", trait, name)
	fmt.Fprintf(&b, "**Motivation**: %s %s. Their journey involves learning to balance their personal desires with their responsibilities to others.\n\n", name, motivation)
	fmt.Fprintf(&b, "**Key Conflict**: The tension between their %s nature and the demands of their role as %s creates compelling internal and external conflicts throughout the story.\n", trait, role)
	return b.String()
}

// PlotTwist returns a twist involving character in situation.
func (w *Writer) PlotTwist(situation, character string) string {
	return twistTemplates[w.pick(len(twistTemplates))](character, situation)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// stringArgs extracts the named string arguments in order.
func stringArgs(args tools.Args, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		v, err := args.String(n)
		if err != nil {
			return nil, fmt.Errorf("creative: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

// Tools returns the creative tools bound to w in catalog order.
func (w *Writer) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        StoryIdeaName,
				Description: "Generate creative story ideas based on genre and theme",
			},
			Params: []tools.Param{
				{Name: "genre", Type: tools.TypeStr, Description: `The genre of the story (e.g., "science fiction", "fantasy", "mystery")`},
				{Name: "theme", Type: tools.TypeStr, Description: `The theme or topic for the story (e.g., "friendship", "redemption", "discovery")`},
			},
			Icon: "Lightbulb",
			Handler: func(_ context.Context, args tools.Args) (string, error) {
				v, err := stringArgs(args, "genre", "theme")
				if err != nil {
					return "", err
				}
				return w.StoryIdea(v[0], v[1]), nil
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name:        CharacterProfileName,
				Description: "Create detailed character profiles for stories",
			},
			Params: []tools.Param{
				{Name: "name", Type: tools.TypeStr, Description: "The character's name"},
				{Name: "role", Type: tools.TypeStr, Description: `The character's role in the story (e.g., "protagonist", "antagonist", "mentor")`},
				{Name: "personality_trait", Type: tools.TypeStr, Description: `A key personality trait (e.g., "brave", "cunning", "compassionate")`},
			},
			Icon: "User",
			Handler: func(_ context.Context, args tools.Args) (string, error) {
				v, err := stringArgs(args, "name", "role", "personality_trait")
				if err != nil {
					return "", err
				}
				return w.CharacterProfile(v[0], v[1], v[2]), nil
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name:        PlotTwistName,
				Description: "Suggest creative plot twists for stories",
			},
			Params: []tools.Param{
				{Name: "current_situation", Type: tools.TypeStr, Description: "Description of the current plot situation"},
				{Name: "character_involved", Type: tools.TypeStr, Description: "Name or description of the character involved in the twist"},
			},
			Icon: "Zap",
			Handler: func(_ context.Context, args tools.Args) (string, error) {
				v, err := stringArgs(args, "current_situation", "character_involved")
				if err != nil {
					return "", err
				}
				return w.PlotTwist(v[0], v[1]), nil
			},
		},
	}
}
