package embedded

import (
	_ "embed"
)

// Embed prompt data files
//
//go:embed data/prompts/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/prompts/journey_prompt.tmpl
var JourneyPromptTmpl []byte

//go:embed data/prompts/pain_points_prompt.tmpl
var PainPointsPromptTmpl []byte
