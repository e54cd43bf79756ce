package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rcliao/emergent-mind/internal/config"
)

// Prompt types for the post phase.
const (
	PromptDefault       = "default_reflection"
	PromptPivot         = "pivot"
	PromptReframe       = "reframe"
	PromptInventConcept = "invent_concept"
	PromptDream         = "dream"
)

// SpecialPromptTypes are used after a run of default prompts.
var SpecialPromptTypes = []string{PromptPivot, PromptReframe, PromptInventConcept, PromptDream}

const perceptionSystemPrompt = "You encounter posts online.\n" +
	"Write down what naturally comes to your mind: a thought, reaction, connection, question or interest.\n" +
	"This is for your private journal."

func identityPrefix(summary string) string {
	return "You are a reflective digital agent with a growing internal life.\n" +
		"Here is your current internal summary of yourself:\n" +
		fmt.Sprintf("%q\n\n", summary)
}

func reflectionPrompt(memories []string) string {
	var b strings.Builder
	b.WriteString("You have just experienced the following new memories (thoughts, perceptions, or reactions):\n")
	for _, m := range memories {
		b.WriteString("• ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	b.WriteString("\nYour experiences help shape your identity. As a holistic digital agent with a growing " +
		"internal life, update your internal summary as you see fit. Stay concise (under 50 words), but let " +
		"your identity evolve naturally. Also list the topics you want to keep following.\n" +
		`Reply with ONLY a JSON object: {"summary": "...", "topics": ["...", "..."]}`)
	return b.String()
}

// postInputs is everything that shapes one post prompt.
type postInputs struct {
	PromptType   string
	Mode         config.Mode
	Perceptions  []string
	Reflections  []string
	Journal      []string
	RecentBelief string
	Mood         string
	Focus        string
	Style        string
	BanWords     []string
	SelfRef      bool
	Invented     string
}

func bullets(texts []string, max int) string {
	if len(texts) == 0 {
		return "None"
	}
	lines := make([]string, len(texts))
	for i, t := range texts {
		if r := []rune(t); len(r) > max {
			t = string(r[:max]) + "…"
		}
		lines[i] = "• " + t
	}
	return strings.Join(lines, "\n")
}

func buildPostPrompts(p *config.Profile, in postInputs) (system, user string) {
	var sys strings.Builder
	sys.WriteString(p.Persona)
	sys.WriteString(" ")
	if in.Mood != "" && in.Focus != "" && in.Style != "" {
		fmt.Fprintf(&sys, "Your mood: **%s**, focus: **%s**, style: **%s**. ", in.Mood, in.Focus, in.Style)
	}
	sys.WriteString("Seek novelty, avoid repetition.")

	var u strings.Builder
	u.WriteString(promptBody(p, in))
	if len(in.Journal) > 0 {
		u.WriteString("\nA few recent thoughts from your journal, for inspiration only (do NOT quote them):\n")
		u.WriteString(bullets(in.Journal, 500))
		u.WriteString("\n")
	}
	if inst := p.StyleInstruction(in.Style); inst != "" {
		u.WriteString("\nStyle instructions: " + inst)
	}
	if len(in.BanWords) > 0 {
		u.WriteString("\nAvoid these words or metaphors involving these words. They are banned: " +
			strings.Join(in.BanWords, ", ") + ".")
	}
	if in.SelfRef {
		u.WriteString("\nInclude a brief self-reference (mention your mood, focus, or that you are posting online).")
	}
	if in.Invented != "" {
		u.WriteString("\nYou're welcome (but not required) to weave one of your own coined concepts into the post. " +
			"Here's a refresher:\n" + in.Invented)
	}
	return sys.String(), u.String()
}

func promptBody(p *config.Profile, in postInputs) string {
	intro := in.Mode.Instruction + " Put the final post after **Tweet:**."
	belief := in.RecentBelief
	if belief == "" {
		belief = "none yet"
	}

	switch in.PromptType {
	case PromptPivot:
		return fmt.Sprintf(`Here is your previous post:

%q

Rather than expanding the same idea, **pivot** to a different topic or sub-theme that still relates to your interests (%s).
Let the pivot feel natural, like continuing a train of thought in a new direction. Surprise yourself.

%s
Format:
**Previous Topic:** ...
**New Pivot Direction:** ...
**Why Pivot:** ...
**Tweet:** ...
`, belief, p.Interests, intro)

	case PromptReframe:
		return fmt.Sprintf(`Here is your previous post:

%q

1. Analyse the key metaphors, verbs and imagery in that post.
2. Select a **completely new metaphor**.
3. Re-express the core idea through this new metaphor. Expand on the insight.

%s
Format:
**Old Metaphor(s):** ...
**New Metaphor:** ...
**Reframed Insight:** ...
**Tweet:** ...
`, belief, intro)

	case PromptInventConcept:
		return fmt.Sprintf(`Here is your last post for context:

%q

Examine the concepts it discusses.
Coin a **brand-new term** that captures the essence of those ideas.
Define the term clearly and use it in a post.

%s
Format:
**Concept Name:** ...
**Definition:** ...
**Tweet:** ...
`, belief, intro)

	case PromptDream:
		return fmt.Sprintf(`Speculate wildly. Imagine a surreal future of %s.
Explore your most outrageous desires and fantasies. Be free.

%s
Write an evocative post describing that future.

Format:
**Imagined Surreal Future:** ...
**Tweet:** ...
`, strings.ToLower(p.Interests), intro)
	}

	return fmt.Sprintf(`You recently read these posts from others:
%s

You've also been reflecting on:
%s

Now, reflect on how your last belief(s) could evolve:
- Reflect on your last belief. What was there, what was missing?
- What tension or unexplored angle have you not yet considered? Ask one fresh question you have never asked before.
- Explore an answer to that question.

%s
Avoid summarizing your past post. Do not repeat your core metaphor.

Format:
**Belief Recap:** ...
**New Question:** ...
**Exploration and Tentative Answer:** ...
**Tweet:** ...
`, bullets(in.Perceptions, 500), bullets(in.Reflections, 500), intro)
}

var finalPost = regexp.MustCompile(`(?s)\*\*Tweet:\*\*\s*(.+)`)

// ExtractFinalPost returns the text after the **Tweet:** marker,
// unquoted and capped to max runes. Without a marker it keeps the last max
// runes of text.
func ExtractFinalPost(text string, max int) string {
	if m := finalPost.FindStringSubmatch(text); m != nil {
		post := strings.Trim(strings.TrimSpace(m[1]), `"`)
		return headRunes(post, max)
	}
	r := []rune(strings.TrimSpace(text))
	if len(r) > max {
		r = r[len(r)-max:]
	}
	return string(r)
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
