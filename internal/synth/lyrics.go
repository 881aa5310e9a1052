package synth

// lyricsLibrary holds the stock lyrics used for batch fixture generation,
// cycled by song index.
var lyricsLibrary = []string{
	"Hello this is a test song for our validation system",
	"Walking down the street on a sunny summer day",
	"Dreams are made of stardust hope and light",
	"The river flows through mountains tall and wide",
	"Dancing in the moonlight feeling so alive",
	"Time keeps moving forward never looking back",
	"Singing songs of freedom joy and peace",
	"Hearts are beating stronger day by day",
	"Searching for tomorrow finding hope today",
	"Music brings us closer makes us whole and free",
}

// LyricsForIndex returns the stock lyrics line for a 1-based song index.
func LyricsForIndex(index int) string {
	if index < 1 {
		index = 1
	}
	return lyricsLibrary[(index-1)%len(lyricsLibrary)]
}
