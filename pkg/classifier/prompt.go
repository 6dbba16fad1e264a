package classifier

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the task for the vision model.
const SystemPrompt = `You are an AI assistant helping dancers find dance wear that matches their skin tone.
You only analyze images of people who have explicitly consented to having their image processed for skin tone matching.

You will be shown two images: a consenting person and a set of labeled fabric swatches.
Suggest which fabric option is the closest match for the person. Your suggestion supports
inclusion in dance; the final choice always remains with the dancer.

Be respectful and professional in your analysis.`

// AnswerPrefix is the sentence the model is asked to answer with.
const AnswerPrefix = "The fabric most suited for this person is"

// Prompt builds the user prompt listing the registry's tone names.
func Prompt(names []string) string {
	return fmt.Sprintf(`Many dancers, particularly from marginalized communities, struggle to find dance attire
that matches their skin tone. The person in the first image has consented to having their photo analyzed.

You are looking at two images:
1. A consenting person seeking dance attire
2. A fabric swatch showing %d color options labeled %s

Choosing only from %s, which fabric option is the best match for this person?

Format your answer EXACTLY as:
"%s [NAME OF COLOUR]"`,
		len(names), joinNames(names, "and"), joinNames(names, "or"), AnswerPrefix)
}

// joinNames renders "A, B, C and D".
func joinNames(names []string, conj string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " " + conj + " " + names[len(names)-1]
}
