package levels

import "encoding/json"

// Level is one exercise definition: a target sketch whose extracted
// timeline the learner's submission is graded against.
type Level struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Difficulty   int      `json:"difficulty,omitempty"`
	TargetSketch string   `json:"target_sketch"`
	ToleranceMs  int64    `json:"tolerance_ms,omitempty"`
	MaxRuntimeMs int64    `json:"max_runtime_ms,omitempty"`
	Hints        []string `json:"hints,omitempty"`
}

// Public is the learner-facing view: the target sketch is withheld so
// the solution cannot be read off the API.
type Public struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Difficulty  int      `json:"difficulty,omitempty"`
	Hints       []string `json:"hints,omitempty"`
}

// FromJSON decodes a level definition. Schema validation is the
// caller's job.
func FromJSON(data []byte) (*Level, error) {
	var level Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, err
	}
	return &level, nil
}

func (l *Level) Public() Public {
	return Public{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Difficulty:  l.Difficulty,
		Hints:       l.Hints,
	}
}
