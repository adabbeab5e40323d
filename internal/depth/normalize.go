package depth

// InRange reports whether v lies strictly inside (minRange, maxRange). The
// same open interval gates masking, point cloud extraction and spawn depth
// validation, so a sample that is masked out can never seed a particle.
func InRange(v uint16, minRange, maxRange int) bool {
	d := int(v)
	return d > minRange && d < maxRange
}

// Remap maps an in-range sample linearly onto [0,255] with the near end of
// the interval brightest. Out-of-range samples map to 0.
func Remap(v uint16, minRange, maxRange int) uint8 {
	if !InRange(v, minRange, maxRange) {
		return 0
	}
	span := float64(maxRange - minRange)
	return uint8(255 * float64(maxRange-int(v)) / span)
}

// Normalize converts a depth frame into a binary foreground mask: in-range
// samples are remapped with Remap, then values strictly greater than
// threshold become Foreground and everything else Background.
func Normalize(f *Frame, minRange, maxRange int, threshold float64) *Mask {
	m := NewMask(f.width, f.height)
	normalize(m, f, minRange, maxRange, threshold)
	return m
}

// NormalizeInto is Normalize writing into an existing mask of the same size.
func NormalizeInto(dst *Mask, f *Frame, minRange, maxRange int, threshold float64) error {
	if dst.width != f.width || dst.height != f.height {
		return sizeMismatch(dst.width, dst.height, f.width, f.height)
	}
	normalize(dst, f, minRange, maxRange, threshold)
	return nil
}

func normalize(dst *Mask, f *Frame, minRange, maxRange int, threshold float64) {
	for i, v := range f.samples {
		if float64(Remap(v, minRange, maxRange)) > threshold {
			dst.pix[i] = Foreground
		} else {
			dst.pix[i] = Background
		}
	}
}
