package detect

// SelectClosest picks the single detection that should drive a
// proximity alert for this cycle, or nil if none qualify.
//
// Only detections with ratio strictly above threshold are considered;
// a ratio exactly at the threshold is excluded. Among qualifying
// detections the largest ratio wins, with ties broken by input order.
// Bounding the result to one detection per cycle keeps the audio
// channel from flooding when many objects are visible at once.
func SelectClosest(dets []Detection, frameWidth, frameHeight int, threshold float64) *Detection {
	var best *Detection
	bestRatio := 0.0

	for i := range dets {
		ratio := dets[i].ProximityRatio(frameWidth, frameHeight)
		if ratio <= threshold {
			continue
		}
		if best == nil || ratio > bestRatio {
			best = &dets[i]
			bestRatio = ratio
		}
	}

	return best
}
