package ingest

// DefaultStopwords is the shipped English stopword list. Catalog operators
// can extend it via the stoplist config file.
var DefaultStopwords = []string{
	"the", "a", "an", "and", "or", "but", "nor", "so", "yet",
	"to", "of", "in", "on", "for", "with", "by", "as", "at", "from",
	"into", "onto", "over", "under", "about", "after", "before", "between",
	"out", "off", "up", "down", "through", "during", "until", "while",
	"is", "am", "are", "was", "were", "be", "been", "being",
	"do", "does", "did", "done", "have", "has", "had", "having",
	"will", "would", "can", "could", "shall", "should", "may", "might", "must",
	"i", "me", "my", "mine", "we", "us", "our", "ours",
	"you", "your", "yours", "he", "him", "his", "she", "her", "hers",
	"it", "its", "they", "them", "their", "theirs",
	"this", "that", "these", "those", "there", "here",
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
	"not", "no", "yes", "all", "any", "some", "each", "every",
	"other", "another", "such", "only", "own", "same", "than", "then",
	"too", "very", "just", "also", "more", "most", "less", "least",
	"get", "got", "like", "one", "two", "new",
}
