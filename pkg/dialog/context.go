package dialog

import "github.com/lumiebot/lumie/pkg/corpus"

// generalIntents are neutral intents that release whichever context is
// active. Whichever intent set up a menu stays in force until one of
// these, or an explicit new context, overrides it.
var generalIntents = map[string]bool{
	"greeting":            true,
	"farewell":            true,
	"thanks":              true,
	corpus.FallbackIntent: true,
}

// nextContext decides the active context after rec was matched.
func nextContext(current string, rec *corpus.Record) string {
	switch {
	case rec.SetContext != "":
		return rec.SetContext
	case generalIntents[rec.Intent]:
		return ""
	case rec.Context == "" && rec.SetContext == "":
		return ""
	default:
		return current
	}
}
