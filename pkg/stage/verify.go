/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package stage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/modelconfig"
	"github.com/SocketDev/socket-btm/pkg/onnxrt"
	"github.com/SocketDev/socket-btm/pkg/status"
)

const (
	// DefaultProbeText is the sentence run through the converted model
	// when no probe text is given.
	DefaultProbeText = "This is a test"

	// defaultHiddenSize is MiniLM's hidden width, used when the config
	// sidecar is absent.
	defaultHiddenSize = 384
)

// Verify runs a probe sentence through the converted model with the
// native ONNX Runtime and reports the activation statistics. It produces
// no artifacts, success means the graph loads and a forward pass yields a
// sane last_hidden_state.
type Verify struct {
	storageDir    string
	modelPath     string
	tokenizerPath string
	probeText     string

	libPath string
}

// NewVerify creates the verify stage probing the model at modelPath with
// the tokenizer at tokenizerPath. An empty probeText selects the default
// sentence.
func NewVerify(storageDir, modelPath, tokenizerPath, probeText string) *Verify {
	if probeText == "" {
		probeText = DefaultProbeText
	}

	return &Verify{
		storageDir:    storageDir,
		modelPath:     modelPath,
		tokenizerPath: tokenizerPath,
		probeText:     probeText,
	}
}

// Name returns the stage name.
func (v *Verify) Name() string {
	return "verify"
}

// Resolve locates the ONNX Runtime shared library.
func (v *Verify) Resolve(ctx context.Context) error {
	if !onnxrt.Available {
		logrus.Error("verify: built without onnxruntime support")
		return DependencyMissing("onnxruntime not installed")
	}

	libPath, err := onnxrt.ResolveLibrary(v.storageDir)
	if err != nil {
		logrus.Errorf("verify: runtime resolution failed: %v", err)
		return DependencyMissing("onnxruntime not installed")
	}

	v.libPath = libPath
	return nil
}

// Inputs declares the model graph and the tokenizer vocabulary.
func (v *Verify) Inputs() []string {
	return []string{v.modelPath, v.tokenizerPath}
}

// OutputDir returns "", verification writes nothing.
func (v *Verify) OutputDir() string {
	return ""
}

// Execute loads the session and tokenizer, encodes the probe text and
// runs one forward pass.
func (v *Verify) Execute(ctx context.Context, rep *status.Reporter) (status.Fields, error) {
	hiddenSize := defaultHiddenSize
	if config, err := modelconfig.Load(filepath.Dir(v.modelPath)); err == nil {
		if _, h := config.Geometry(0, 0); h > 0 {
			hiddenSize = h
		}
	} else {
		logrus.Debugf("verify: no config sidecar, assuming hidden size %d: %v", hiddenSize, err)
	}

	rep.Progress("loading_session")
	session, err := onnxrt.OpenSession(v.libPath, v.modelPath, hiddenSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", v.modelPath, err)
	}

	rep.Progress("loading_tokenizer")
	tokenizer, err := onnxrt.LoadTokenizer(v.tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", v.tokenizerPath, err)
	}

	rep.Progress("tokenizing")
	inputIDs, attentionMask := tokenizer.Encode(v.probeText, 0)

	rep.Progress("running_inference")
	result, err := session.Run(inputIDs, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	mean, std, err := activationStats(result.Data)
	if err != nil {
		return nil, err
	}

	logrus.Infof("verify: forward pass ok [shape: %v, mean: %f, std: %f]", result.Shape, mean, std)

	return status.Fields{
		"test_text":    v.probeText,
		"output_shape": result.Shape,
		"output_mean":  mean,
		"output_std":   std,
	}, nil
}

// activationStats computes the mean and population standard deviation of
// the flattened activation.
func activationStats(data []float32) (float64, float64, error) {
	if len(data) == 0 {
		return 0, 0, errors.New("model produced an empty activation")
	}

	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	mean := sum / float64(len(data))

	var sq float64
	for _, v := range data {
		d := float64(v) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(data)))

	return mean, std, nil
}
