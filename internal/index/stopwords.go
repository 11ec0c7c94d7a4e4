package index

import "strings"

var stopWords = map[string]string{
	"danish": `og i jeg det at en den til er som på de med han af for ikke der var mig sig men et har om vi min
havde ham hun nu over da fra du ud sin dem os op man hans hvor eller hvad skal selv her alle vil blev kunne ind når
være dog noget ville jo deres efter ned skulle denne end dette mit også under have dig anden hende mine alt meget
sit sine vor mod disse hvis din nogle hos blive mange ad bliver hendes været thi jer sådan`,
	"english": `a an and are as at be but by for if in into is it no not of on or such that the their then there these
they this to was will with`,
}

// StopWords returns the stop word list for a language, or nil.
func StopWords(language string) []string {
	return strings.Fields(stopWords[strings.ToLower(language)])
}
