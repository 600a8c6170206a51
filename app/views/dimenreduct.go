package views

import (
	"errors"
	"io"
	"slices"
)

// Datasets and algorithms offered by the dimension reduction page.
var (
	Datasets   = []string{"iris", "digits", "wine"}
	Algorithms = []string{"PCA", "LDA", "KernelPCA", "ICA", "FA", "tSNE", "MDS", "LLE", "SVD", "Autoencoder"}
)

var ErrInvalidSelection = errors.New("invalid dimension reduction selection")

// DimenReduct is the dimension reduction page.
type DimenReduct struct {
	dataset    string
	algorithm  string
	components int
}

// NewDimenReduct returns the page with its default selection.
func NewDimenReduct() *DimenReduct {
	return &DimenReduct{dataset: "iris", algorithm: "PCA", components: 2}
}

// Select changes the dataset, algorithm and output dimension.
func (d *DimenReduct) Select(dataset, algorithm string, components int) error {
	if !slices.Contains(Datasets, dataset) || !slices.Contains(Algorithms, algorithm) {
		return ErrInvalidSelection
	}
	if components < 2 || components > 3 {
		return ErrInvalidSelection
	}
	d.dataset, d.algorithm, d.components = dataset, algorithm, components
	return nil
}

func (d *DimenReduct) Render(w io.Writer) error {
	return render(w, "dimenreduct", struct {
		Dataset, Algorithm string
		Components         int
	}{d.dataset, d.algorithm, d.components})
}
