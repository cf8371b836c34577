package index

// commonWords are frequent English words in decreasing frequency order.
// Present in the corpus, they are the first candidates for junk ids.
// Words that carry licensing meaning (license, copyright, warranty,
// permission, rights...) are deliberately absent.
var commonWords = []string{
	"the", "of", "and", "to", "a", "in", "is", "it", "you", "that",
	"he", "was", "for", "on", "are", "as", "with", "his", "they", "i",
	"at", "be", "this", "have", "from", "or", "one", "had", "by", "but",
	"not", "what", "all", "were", "we", "when", "your", "can", "said", "there",
	"an", "each", "which", "she", "do", "how", "their", "if", "will", "up",
	"other", "about", "out", "many", "then", "them", "these", "so", "some", "her",
	"would", "make", "like", "him", "into", "time", "has", "look", "two", "more",
	"go", "see", "no", "way", "could", "my", "than", "first", "been", "call",
	"who", "its", "now", "find", "long", "down", "day", "did", "get", "come",
	"made", "may", "part", "over", "new", "after", "also", "only", "any", "such",
	"our", "us", "me", "should", "must", "shall", "where", "here", "both", "those",
	"own", "same", "very", "just", "because", "through", "before", "between", "most", "well",
	"even", "back", "while", "whose", "since", "upon", "within", "without", "against", "under",
	"above", "below", "again", "further", "once", "why", "does", "being", "having", "doing",
	"am", "too", "off", "few", "nor", "whom", "itself", "ours", "yours", "theirs",
	"etc", "www", "com", "org", "net", "http", "https",
}

// markerWords disqualify an n-gram from the unknown-license automaton:
// copyright statements and URLs repeat across unrelated files and would
// otherwise be reported as unidentified license text.
var markerWords = map[string]bool{
	"copyright":   true,
	"copyrights":  true,
	"copyrighted": true,
	"rights":      true,
	"reserved":    true,
	"http":        true,
	"https":       true,
	"ftp":         true,
	"www":         true,
	"com":         true,
	"org":         true,
	"net":         true,
	"html":        true,
	"mailto":      true,
	"author":      true,
	"authors":     true,
}

// junkProportion caps the junk share of the vocabulary at 1/junkProportion.
const junkProportion = 3
