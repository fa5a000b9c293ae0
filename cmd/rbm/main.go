package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorgonia/rbm"
	"github.com/gorgonia/rbm/encoding/gif"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var (
	data    = flag.String("data", "", "dataset: one sample per line, values separated by commas or spaces")
	load    = flag.String("load", "", "continue training from the tables saved under this run name in -out")
	hidden  = flag.Int("hidden", rbm.DefaultHidden, "number of hidden units")
	variant = flag.String("variant", "GBRBM", "GBRBM (Gaussian visible units) or BBRBM (Bernoulli visible units)")
	glorot  = flag.Bool("glorot", false, "initialize the weights with Glorot normal instead of N(0, 0.1)")
	indep   = flag.Bool("independent", false, "draw the sampling thresholds independently for every sample")
	seed    = flag.Int64("seed", 0, "random seed. 0 seeds from the clock")

	iters    = flag.Int("iters", 200, "maximum number of iterations")
	lr       = flag.Float64("lr", 0.001, "learning rate")
	wc       = flag.Float64("wc", 0.0002, "weight cost")
	imom     = flag.Float64("imom", 0.5, "initial momentum")
	fmom     = flag.Float64("fmom", 0.9, "final momentum")
	cd       = flag.Int("cd", 1, "number of Gibbs steps in CD-k")
	batch    = flag.Int("batch", 100, "batch size. 0 uses the whole dataset")
	verbose  = flag.Bool("verbose", true, "log the progress")
	freq     = flag.Int("freq", 10, "report every n iterations")
	tol      = flag.Float64("tol", 10e-5, "weight drift tolerance for early stopping")
	name     = flag.String("name", "", "name of the training run")
	out      = flag.String("out", ".", "directory the tables are written to")
	stats    = flag.String("stats", "", "write the training history as CSV into this file")
	gifFile  = flag.String("gif", "", "render the weights as an animated GIF into this file")
	cell     = flag.Int("cell", 4, "pixels per weight in the GIF")
	dotFile  = flag.String("dot", "", "write the trained RBM as a Graphviz graph into this file")
	gobFile  = flag.String("gob", "", "save the trained model, momentum included, into this file")
	serve    = flag.String("serve", "", "stream the progress over websocket at this address, eg :8080")
	serveDir = flag.String("static", "", "directory of static files served alongside the websocket")
)

func main() {
	flag.Parse()
	logger := log.New(os.Stderr, "", log.Ltime)

	v, err := rbm.ParseVariant(*variant)
	if err != nil {
		log.Fatal(err)
	}
	if *data == "" {
		log.Fatal("no dataset. Use -data")
	}
	dataset, err := readDataset(*data)
	if err != nil {
		log.Fatalf("reading %s: %+v", *data, err)
	}

	opts := []rbm.ModelOpt{rbm.WithLogger(logger)}
	if *seed != 0 {
		opts = append(opts, rbm.WithSeed(*seed))
	}
	if *glorot {
		opts = append(opts, rbm.WithInit(G.GlorotN(1.0)))
	}
	if *indep {
		opts = append(opts, rbm.WithSampling(rbm.IndependentThreshold))
	}

	var m *rbm.Model
	if *load != "" {
		m, err = rbm.LoadTables(*out, *load, v, opts...)
	} else {
		m, err = rbm.New(dataset, *hidden, v, opts...)
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
	logger.Printf("\n%v", m)

	conf := rbm.TrainConfig{
		Name:            *name,
		MaxIterations:   *iters,
		LearningRate:    float32(*lr),
		WeightCost:      float32(*wc),
		InitialMomentum: float32(*imom),
		FinalMomentum:   float32(*fmom),
		CDSteps:         *cd,
		BatchSize:       *batch,
		Verbose:         *verbose,
		FreqPrint:       *freq,
		Tolerance:       float32(*tol),
	}

	var encs multiEncoder
	var gifOut *os.File
	if *gifFile != "" {
		if gifOut, err = os.Create(*gifFile); err != nil {
			log.Fatal(err)
		}
		defer gifOut.Close()
		encs = append(encs, gif.NewEncoder(gifOut, *cell))
	}
	if *serve != "" {
		s := NewStreamer()
		encs = append(encs, s)
		go listen(*serve, *serveDir, s)
	}
	if len(encs) > 0 {
		conf.Output = encs
	}

	hist, err := m.Train(dataset, conf)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	e, d := hist.Last()
	logger.Printf("Trained %d iterations. Error %v, Diff %v, converged: %t", hist.Len(), e, d, hist.Converged)

	if err = m.SaveTables(*out, *name); err != nil {
		log.Fatal(err)
	}
	if *stats != "" {
		if err = hist.Dump(*stats); err != nil {
			log.Fatal(err)
		}
	}
	if *dotFile != "" {
		dot, err := m.ToDot()
		if err != nil {
			log.Fatal(err)
		}
		if err = os.WriteFile(*dotFile, []byte(dot), 0644); err != nil {
			log.Fatal(err)
		}
	}
	if *gobFile != "" {
		if err = m.Save(*gobFile); err != nil {
			log.Fatal(err)
		}
	}
	if len(encs) > 0 {
		if err = encs.Flush(); err != nil {
			log.Fatal(err)
		}
	}
}

func readDataset(filename string) (*tensor.Dense, error) {
	f, err := os.Open(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return rbm.ReadTable(f)
}

func listen(addr, static string, s *Streamer) {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	if static != "" {
		mux.Handle("/", http.FileServer(http.Dir(static)))
	}
	log.Fatal(http.ListenAndServe(addr, mux))
}
