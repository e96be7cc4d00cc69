package gazetteer

// golfKeywords are locations and phrases that mark a listing as golf-adjacent.
// The bare word "golf" is not a keyword.
var golfKeywords = []string{
	"alicante golf",
	"campo de golf",
	"don cayo",
	"frontline golf",
	"golf course",
	"golf resort",
	"ifach golf",
	"la finca golf",
	"la marquesa",
	"la sella",
	"las colinas",
	"las ramblas",
	"lo romero",
	"puig campana",
	"real de faula",
	"villaitana",
	"villamartin",
	"vistabella",
}

var foldedGolfKeywords = func() []string {
	out := make([]string, len(golfKeywords))
	for i, k := range golfKeywords {
		out[i] = Fold(k)
	}
	return out
}()

// MatchGolf returns the first golf keyword found in any of the texts.
func MatchGolf(texts ...string) (string, bool) {
	for _, t := range texts {
		folded := Fold(t)
		if folded == "" {
			continue
		}
		for _, k := range foldedGolfKeywords {
			if containsPhrase(folded, k) {
				return k, true
			}
		}
	}
	return "", false
}
