package taskmatch

// stopWords are dropped from tokenization entirely; they carry no
// topical signal and would otherwise inflate overlap ratios.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "into": true, "onto": true, "have": true,
	"has": true, "had": true, "are": true, "was": true, "were": true,
	"will": true, "would": true, "should": true, "could": true, "can": true,
	"its": true, "our": true, "your": true, "their": true, "all": true,
	"any": true, "some": true, "not": true, "but": true, "than": true,
	"then": true, "there": true, "these": true, "those": true, "when": true,
	"where": true, "which": true, "while": true, "also": true, "use": true,
	"used": true, "using": true, "per": true, "via": true, "each": true,
}

// actionVerbs are the domain verbs §4.5 calls out: they never count
// toward overlap directly (every task description contains one, so
// they'd dominate the ratio), but their synonym groups still expand
// matching against commit messages.
var actionVerbs = map[string]bool{
	"add": true, "update": true, "implement": true, "fix": true,
	"create": true, "write": true, "document": true, "remove": true,
	"refactor": true, "improve": true, "support": true, "handle": true,
}

// synonymGroups lets a task word match a commit phrased with another
// member of the same group (§4.5). Members that are action verbs never
// reach the task's content set, so only the other members (repair,
// resolve, describe, modify, change) gain matches from this.
var synonymGroups = [][]string{
	{"add", "implement", "create"},
	{"fix", "repair", "resolve"},
	{"write", "document", "describe"},
	{"update", "modify", "change"},
}

// synonymOf maps every word in a synonym group to the full set of words
// (including itself) it should expand to when matching.
var synonymOf = buildSynonymIndex()

func buildSynonymIndex() map[string][]string {
	idx := make(map[string][]string)
	for _, group := range synonymGroups {
		for _, word := range group {
			idx[word] = group
		}
	}
	return idx
}
