package palette

// Spectra 6 slot layout. The slot number is the color code of the panel RAM; code 4 is
// unused by the panel and holds a second black to keep the codes aligned.
const (
	Spectra6Black = iota
	Spectra6White
	Spectra6Yellow
	Spectra6Red
	Spectra6Unused
	Spectra6Blue
	Spectra6Green
)

// Spectra6 returns the palette used for dithering towards a Spectra 6 panel.
//
// White is slightly off-white, pure white dithers too aggressively on the panel.
func Spectra6() *Palette {
	return mustNew(
		0, 0, 0, // black
		250, 250, 250, // white
		255, 255, 0, // yellow
		255, 0, 0, // red
		0, 0, 0, // unused
		0, 0, 255, // blue
		0, 255, 0, // green
	)
}

// Spectra6Panel returns the colors a Spectra 6 panel actually shows, in the same slot
// layout as [Spectra6]. Remap a dithered image to this palette for a realistic preview.
func Spectra6Panel() *Palette {
	return mustNew(
		25, 30, 33, // black
		232, 232, 232, // white
		239, 222, 68, // yellow
		178, 19, 24, // red
		0, 0, 0, // unused
		33, 87, 186, // blue
		18, 95, 32, // green
	)
}

func mustNew(flat ...uint8) *Palette {
	p, err := New(flat...)
	if err != nil {
		panic(err)
	}
	return p
}
