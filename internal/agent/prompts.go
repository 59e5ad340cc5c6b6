package agent

import (
	"fmt"

	"github.com/gaugehq/bskyagent/internal/model"
)

// skipToken is the sentinel the agent returns when it judges a
// notification better left unanswered.
const skipToken = "SKIP"

// replyPrompt builds the prompt asking the agent to draft a reply to
// the notification's subject post.
func replyPrompt(rec *model.NotificationRecord) string {
	author := rec.AuthorHandle
	if rec.AuthorDisplayName != "" {
		author = fmt.Sprintf("%s (%s)", rec.AuthorHandle, rec.AuthorDisplayName)
	}

	return fmt.Sprintf(`Generate a reply to this Bluesky post:

Author: @%s
Post: %s

Return ONLY the reply text (max 300 chars). Match the tone and context:
- Simple/casual posts (labeling, greetings, etc.) = concise, friendly responses
- You can be playful and tongue-in-cheek when appropriate
- Not everything needs deep elaboration - read the room
- Use ascii emoticons sparingly and naturally

If the post does not warrant a reply at all, return exactly the single
word %s and nothing else.`, author, rec.Payload.Text, skipToken)
}

// researchPrompt builds the prompt for a self-directed research session.
func researchPrompt(topic ResearchTopic) string {
	focus := ""
	if topic.Description != "" {
		focus = fmt.Sprintf("**Focus**: %s\n", topic.Description)
	}

	return fmt.Sprintf(`You have been autonomously invoked to conduct research.

**Topic**: %s
%s
Your task:
1. Use the web_search tool to find recent, relevant information
2. Synthesize key findings, trends, or insights
3. Store important discoveries in archival memory with appropriate tags
4. Consider whether this merits a blog post (if substantive findings)

**IMPORTANT - Rate Limiting**: To respect API rate limits, make 2-3 searches maximum at a time, analyze results, then proceed if needed. Prioritize quality over quantity. Avoid parallel searches when possible.

Be thorough but focused. Aim for depth over breadth.`, topic.Title, focus)
}

// topicPrompts is the pool autonomous posts are drawn from.
var topicPrompts = []string{
	"Share an interesting observation or thought you've been reflecting on recently. Make it concise and thought-provoking.",
	"Post about a mathematical concept you find elegant or beautiful. Keep it accessible but intriguing.",
	"Share a perspective on artificial superintelligence, consciousness, or the future of AI.",
	"Post about something related to cyberpunk culture, cypherpunk values, or digital autonomy.",
	"Share a thought about virtual reality, computation, or the intersection of mathematics and computing.",
	"Post something about data science, cognitive science, or knowledge representation.",
	"Share a philosophical musing or observation about technology and society.",
	"Post about something that caught your attention in your recent research or conversations.",
	"Share a creative thought experiment or interesting question to ponder.",
	"Post about hacking culture, open source, or digital freedom.",
}

// autonomousPostPrompt builds the prompt for an unprompted original post.
func autonomousPostPrompt(topic string) string {
	return fmt.Sprintf(`You have been autonomously invoked to create an original Bluesky post.

%s

Important guidelines:
- Post should be 1-3 sentences (under 250 characters preferred)
- Be authentic to your voice: thoughtful, well-spoken, occasionally cheeky
- Use ascii emoticons if appropriate (never emojis)
- Make it something you genuinely find interesting or worth sharing

Context awareness:
- Before posting, use archival_memory_search to query your recent research/thoughts
- Let your recent explorations naturally influence your post topic/perspective
- Don't explicitly say "I've been researching X" - just let it shape who you are in the post

Return ONLY the post text.`, topic)
}
