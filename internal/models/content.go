package models

// StoryContent is the schema-validated output of the structured content
// generator. JSON keys are capitalized: that is the shape the generation
// prompt contracts with the model.
type StoryContent struct {
	Prompt    string   `json:"Prompt"`
	Title     string   `json:"Title"`
	Scenes    []string `json:"Scenes"`
	Summaries []string `json:"Summaries"`
}
