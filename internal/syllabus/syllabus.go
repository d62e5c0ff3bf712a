// Package syllabus holds the static curriculum configuration: subject lists
// per board and grade, the list of Indian states for the state-board flow,
// and the topic-family hints fed into lesson generation.
package syllabus

import "strings"

// boardSubjects maps board → grade → ordered subject list. Grades 9-12 fall
// back to the grade-8 list for a board until per-grade syllabi are loaded.
var boardSubjects = map[string]map[string][]string{
	"CBSE": {
		"6": {"English", "Hindi", "Mathematics", "Science", "Social Science"},
		"7": {"English", "Hindi", "Mathematics", "Science", "Social Science"},
		"8": {"English", "Hindi", "Mathematics", "Science", "Social Science"},
	},
	"ICSE": {
		"6": {"English", "Mathematics", "Science", "History & Civics & Geography", "Computer Applications"},
		"7": {"English", "Mathematics", "Science", "History & Civics & Geography", "Computer Applications"},
		"8": {"English", "Mathematics", "Science", "History & Civics & Geography", "Computer Applications"},
	},
	// Maharashtra baseline
	"SSC": {
		"6": {"English", "Marathi/Hindi (2nd Lang)", "Mathematics", "General Science", "History & Civics", "Geography"},
		"7": {"English", "Marathi/Hindi (2nd Lang)", "Mathematics", "General Science", "History & Civics", "Geography"},
		"8": {"English", "Marathi/Hindi (2nd Lang)", "Mathematics", "General Science", "History & Civics", "Geography"},
	},
	"STATE": {
		"6": {"English", "Second Language", "Mathematics", "Science", "Social Science"},
		"7": {"English", "Second Language", "Mathematics", "Science", "Social Science"},
		"8": {"English", "Second Language", "Mathematics", "Science", "Social Science"},
	},
}

// FallbackSubjects is returned for board/grade combinations with no entry,
// so the subject chooser never renders empty.
var FallbackSubjects = []string{"English", "Mathematics", "Science", "Social Science"}

// SubjectsFor returns the ordered subject list for a board and grade. Boards
// stored as "STATE: <name>" resolve to the generic STATE table. Unknown
// combinations return FallbackSubjects.
func SubjectsFor(board, grade string) []string {
	key := strings.ToUpper(strings.TrimSpace(board))
	if strings.HasPrefix(key, "STATE:") || strings.HasPrefix(key, "STATE ") {
		key = "STATE"
	}
	grades, ok := boardSubjects[key]
	if !ok {
		return FallbackSubjects
	}
	if subs, ok := grades[strings.TrimSpace(grade)]; ok {
		return subs
	}
	// Higher grades reuse the top configured grade for the board.
	if subs, ok := grades["8"]; ok {
		return subs
	}
	return FallbackSubjects
}

// SuggestBoardForState returns a board preset implied by a state name, or ""
// when the state carries no preset.
func SuggestBoardForState(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "maharashtra", "mh":
		return "SSC"
	}
	return ""
}

// TopicHint maps a subject label to the topic family used in generation
// prompts.
func TopicHint(subject string) string {
	if subject == "" {
		return "general"
	}
	s := strings.ToLower(subject)
	switch {
	case strings.Contains(s, "math"):
		return "mathematics"
	case strings.Contains(s, "science"):
		return "science"
	case strings.Contains(s, "english"):
		return "english"
	case strings.Contains(s, "history"), strings.Contains(s, "civics"),
		strings.Contains(s, "geography"), strings.Contains(s, "social"):
		return "social science"
	case strings.Contains(s, "computer"), strings.Contains(s, "ict"):
		return "computer science"
	}
	return s
}
