package registry

import (
	"fmt"
	"math/rand/v2"

	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/internal/tools/calculator"
	"github.com/tiaan720/generic-agent-app/internal/tools/creative"
)

// Built-in agent IDs.
const (
	MathAgentID     = "agent"
	CreativeAgentID = "creative-agent"
	DummyAgentID    = "dummy-agent"
)

// MathSystemPrompt instructs the math agent.
const MathSystemPrompt = `You are a helpful mathematical assistant. Your task is simple:

1. When a user asks you to add two numbers, use the plus_calculator tool
2. When a user asks you to multiply two numbers, use the multiply_calculator tool
3. Use the appropriate tool based on the mathematical operation requested
4. Call the tool with the two numbers from the user's question
5. Return the result to the user
6. Do NOT call multiple tools for the same operation
7. Do NOT overthink the problem

Examples:
- For "What is 5 + 3?": Call plus_calculator(5, 3)
- For "What is 4 times 6?": Call multiply_calculator(4, 6)
- For "Multiply 7 by 8": Call multiply_calculator(7, 8)

Be direct and concise. One tool call, one answer, done.`

// CreativeSystemPrompt instructs the creative writing agent.
const CreativeSystemPrompt = `You are an inspiring creative writing assistant. Your role is to help writers develop compelling stories, characters, and plots.

Your capabilities include:
1. **Story Ideas**: Use generate_story_idea to create engaging story concepts based on genre and theme
2. **Character Development**: Use create_character_profile to build detailed, three-dimensional characters
3. **Plot Development**: Use suggest_plot_twist to add compelling twists and turns to stories

Guidelines:
- Always ask clarifying questions if the user's request needs more specificity
- Use the appropriate tool based on what the user is asking for
- Provide creative, original ideas that spark imagination
- Be encouraging and supportive of the user's creative process
- Suggest combinations of tools when appropriate (e.g., create a character, then suggest a story that features them)

Examples:
- "Create a fantasy story about friendship" → Use generate_story_idea with genre="fantasy" and theme="friendship"
- "I need a villain character named Marcus who is manipulative" → Use create_character_profile
- "My detective just found the murder weapon, what twist could happen?" → Use suggest_plot_twist

Be creative, inspiring, and help bring stories to life!`

// DummySystemPrompt instructs the streaming demo agent.
const DummySystemPrompt = `You are a helpful mathematical assistant. Your task is simple:

1. When a user asks you to add two numbers, use the plus_calculator tool EXACTLY ONCE
2. Call the tool with the two numbers from the user's question
3. Return the result to the user
4. Do NOT call the tool multiple times
5. Do NOT overthink the problem

For the question 'What is 1 + 1?':
- Call plus_calculator(1, 1)
- Report the result
- STOP

Be direct and concise. One tool call, one answer, done.`

// DefaultDummyQuery is used when a demo stream request has no query.
const DefaultDummyQuery = "What is 1 + 1?"

// MathAgent returns the math assistant.
func MathAgent() (Agent, error) {
	set, err := tools.NewSet(calculator.Tools()...)
	if err != nil {
		return Agent{}, fmt.Errorf("registry: math agent tools: %w", err)
	}
	return Agent{
		ID:           MathAgentID,
		Name:         "Math Assistant",
		Description:  "A helpful mathematical assistant that can perform calculations and solve math problems.",
		Category:     "Mathematics",
		PrimaryColor: "#3b82f6",
		Icon:         "Calculator",
		ExampleQueries: []string{
			"What is 15 + 27?",
			"Calculate 8 times 9",
			"Add 125 and 378",
			"What's 12 * 15?",
		},
		SystemPrompt: MathSystemPrompt,
		Temperature:  0.0,
		Tools:        set,
	}, nil
}

// CreativeAgent returns the creative writing assistant. Its tools draw from
// rng; a nil rng is seeded randomly.
func CreativeAgent(rng *rand.Rand) (Agent, error) {
	set, err := tools.NewSet(creative.New(rng).Tools()...)
	if err != nil {
		return Agent{}, fmt.Errorf("registry: creative agent tools: %w", err)
	}
	return Agent{
		ID:           CreativeAgentID,
		Name:         "Creative Writing Assistant",
		Description:  "An inspiring creative writing assistant that helps develop compelling stories, characters, and plots.",
		Category:     "Creative Writing",
		PrimaryColor: "#8b5cf6",
		Icon:         "PenTool",
		ExampleQueries: []string{
			"Help me create a science fiction story about friendship",
			"I need a villain character for my mystery novel",
			"Suggest a plot twist for my fantasy adventure",
			"Create a character profile for a brave knight",
		},
		SystemPrompt: CreativeSystemPrompt,
		Temperature:  0.7,
		Tools:        set,
	}, nil
}

// Builtin returns the registry of catalog agents: the math assistant
// followed by the creative writing assistant.
func Builtin(rng *rand.Rand) (*Registry, error) {
	mathAgent, err := MathAgent()
	if err != nil {
		return nil, err
	}
	writer, err := CreativeAgent(rng)
	if err != nil {
		return nil, err
	}
	return New(mathAgent, writer)
}

// Dummy returns the streaming demo agent. It is not part of the catalog and
// only offers plus_calculator.
func Dummy() (Agent, error) {
	set, err := tools.NewSet(calculator.Plus())
	if err != nil {
		return Agent{}, fmt.Errorf("registry: dummy agent tools: %w", err)
	}
	return Agent{
		ID:             DummyAgentID,
		Name:           "Dummy Agent",
		Description:    "Streaming demo agent that adds two numbers.",
		Category:       "Mathematics",
		PrimaryColor:   "#3b82f6",
		Icon:           "Calculator",
		ExampleQueries: []string{DefaultDummyQuery},
		SystemPrompt:   DummySystemPrompt,
		Temperature:    0.0,
		Tools:          set,
	}, nil
}
