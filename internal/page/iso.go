package page

// ISO 216 and North American paper sizes.

// A4Spec returns ISO A4 (210 x 297 mm). The pixel table carries the
// customary sizes for the standard resolutions.
func A4Spec() *BaseSpec {
	return &BaseSpec{
		SpecName: "A4",
		WidthMM:  210,
		HeightMM: 297,
		Pixels: map[int][2]int{
			72:   {595, 842},
			100:  {827, 1169},
			200:  {1654, 2339},
			300:  {2480, 3508},
			600:  {4961, 7016},
			1200: {9921, 14031},
		},
	}
}

// A3Spec returns ISO A3 (297 x 420 mm).
func A3Spec() *BaseSpec {
	return &BaseSpec{
		SpecName: "A3",
		WidthMM:  297,
		HeightMM: 420,
		Pixels: map[int][2]int{
			72:  {842, 1191},
			300: {3508, 4961},
		},
	}
}

// LetterSpec returns US Letter (8.5 x 11 in).
func LetterSpec() *BaseSpec {
	return &BaseSpec{
		SpecName: "Letter",
		WidthMM:  215.9,
		HeightMM: 279.4,
	}
}
