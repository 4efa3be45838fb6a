package imageproc

// Contrast-limited adaptive histogram equalization, operating in place on a
// grayscale plane. The plane is divided into tilesX x tilesY tiles; each tile
// gets its own clipped, equalized histogram, and pixels are remapped by
// bilinear interpolation between the four surrounding tile mappings.
func CLAHE(plane []uint8, width, height int, clipLimit float64, tilesX, tilesY int) {
	if width == 0 || height == 0 {
		return
	}
	tileW := (width + tilesX - 1) / tilesX
	tileH := (height + tilesY - 1) / tilesY

	// Per-tile remap tables
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0 := tx * tileW
			y0 := ty * tileH
			x1 := min(width, x0+tileW)
			y1 := min(height, y0+tileH)
			buildTileLUT(plane, width, x0, y0, x1, y1, clipLimit, &luts[ty*tilesX+tx])
		}
	}

	// Remap every pixel, interpolating between the four nearest tile centers
	for y := 0; y < height; y++ {
		// Position in tile-center space
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(fy)
		if fy < 0 {
			fy = 0
			ty0 = 0
		}
		ty1 := min(tilesY-1, ty0+1)
		wy := fy - float64(ty0)
		if ty0 >= tilesY-1 {
			ty0 = tilesY - 1
			ty1 = tilesY - 1
			wy = 0
		}
		for x := 0; x < width; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(fx)
			if fx < 0 {
				fx = 0
				tx0 = 0
			}
			tx1 := min(tilesX-1, tx0+1)
			wx := fx - float64(tx0)
			if tx0 >= tilesX-1 {
				tx0 = tilesX - 1
				tx1 = tilesX - 1
				wx = 0
			}
			v := plane[y*width+x]
			v00 := float64(luts[ty0*tilesX+tx0][v])
			v01 := float64(luts[ty0*tilesX+tx1][v])
			v10 := float64(luts[ty1*tilesX+tx0][v])
			v11 := float64(luts[ty1*tilesX+tx1][v])
			top := v00 + wx*(v01-v00)
			bottom := v10 + wx*(v11-v10)
			plane[y*width+x] = uint8(top + wy*(bottom-top) + 0.5)
		}
	}
}

// buildTileLUT computes the clipped-equalization lookup table for one tile
func buildTileLUT(plane []uint8, width, x0, y0, x1, y1 int, clipLimit float64, lut *[256]uint8) {
	var hist [256]int
	nPixels := (x1 - x0) * (y1 - y0)
	if nPixels == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return
	}
	for y := y0; y < y1; y++ {
		row := plane[y*width:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}

	// Clip the histogram and redistribute the excess uniformly.
	// clipLimit is expressed as a multiple of the mean bin height.
	clip := int(clipLimit * float64(nPixels) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	bonus := excess / 256
	residual := excess - bonus*256
	for i := range hist {
		hist[i] += bonus
		if i < residual {
			hist[i]++
		}
	}

	// Cumulative mapping
	scale := 255.0 / float64(nPixels)
	cum := 0
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8(min(255.0, float64(cum)*scale+0.5))
	}
}
