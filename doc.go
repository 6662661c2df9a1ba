// Package cutoff finds the optimal decision threshold for a binary or
// one-vs-rest multiclass classifier.
//
// # Quick Start
//
//	actual := []bool{false, true, true, false, true}
//	predicted := []float64{0.10, 0.80, 0.55, 0.60, 0.95}
//
//	threshold, err := cutoff.Find(actual, predicted,
//	    cutoff.WithMethod(cutoff.DistanceSquared),
//	    cutoff.WithWeight(2), // false positives cost twice as much
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("predict positive when score >= %.3f\n", threshold)
//
// # Algorithm
//
// Samples are sorted by descending score and the cutoff is swept from +Inf
// downwards one tie-block at a time. Each block flips its false negatives
// into true positives and its true negatives into false positives, so the
// penalty can be updated in closed form and the whole search is O(n) after
// the sort. The threshold with the lowest penalty wins; among equal
// penalties the highest threshold wins.
//
// A returned threshold of NoCutoff (+Inf) means no threshold beats
// predicting every sample negative.
//
// # Multiclass
//
// FindMulticlass and FindMulticlassMatrix run one independent binary sweep
// per class (one-vs-rest), concurrently. Because each class is optimised in
// isolation a sample may end up above the cutoff of several classes, or of
// none.
package cutoff
