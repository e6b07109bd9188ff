package qureg

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GateKind identifies the transformation a Gate applies.
type GateKind int

const (
	GateSigmaX GateKind = iota
	GateSigmaY
	GateSigmaZ
	GateRotateX
	GateRotateY
	GateRotateZ
	GatePhase
	GatePhaseKick
	GateHadamard
	GateWalsh
	GateSwap
	GateCNOT
	GateToffoli
	GateCondPhase
	GateCondPhaseKick
	GateQFT
	GateQFTInverse
	GateUnitary
)

var gateNames = map[GateKind]string{
	GateSigmaX:        "sigma_x",
	GateSigmaY:        "sigma_y",
	GateSigmaZ:        "sigma_z",
	GateRotateX:       "rotate_x",
	GateRotateY:       "rotate_y",
	GateRotateZ:       "rotate_z",
	GatePhase:         "phase",
	GatePhaseKick:     "phase_kick",
	GateHadamard:      "hadamard",
	GateWalsh:         "walsh",
	GateSwap:          "swap",
	GateCNOT:          "cnot",
	GateToffoli:       "toffoli",
	GateCondPhase:     "cond_phase",
	GateCondPhaseKick: "cond_phase_kick",
	GateQFT:           "qft",
	GateQFTInverse:    "qft_inverse",
	GateUnitary:       "unitary",
}

func (k GateKind) String() string {
	if name, ok := gateNames[k]; ok {
		return name
	}

	return "unknown"
}

/*
Gate describes one unitary operation on a register. It carries no state and is
consumed as soon as the GateEngine applies it.

Target is the acted-on qubit. For GateWalsh, GateQFT and GateQFTInverse it is
instead the number of low qubits the transform spans. Controls lists control
qubits (one for CNOT and the conditional phases, two for Toffoli). Partner is
the second qubit of a GateSwap. Angle parameterises rotations and phases, and
Matrix carries the 2x2 operator of a GateUnitary.
*/
type Gate struct {
	Kind     GateKind
	Target   int
	Controls []int
	Partner  int
	Angle    float64
	Matrix   *mat.CDense
}

// NewUnitary builds a custom single-qubit gate from a row-major 2x2 matrix.
func NewUnitary(target int, a, b, c, d complex128) Gate {
	return Gate{
		Kind:   GateUnitary,
		Target: target,
		Matrix: mat.NewCDense(2, 2, []complex128{a, b, c, d}),
	}
}

func (g Gate) validate(layout Layout) error {
	switch g.Kind {
	case GateWalsh, GateQFT, GateQFTInverse:
		if g.Target < 0 || g.Target > layout.Span {
			return errors.Wrapf(ErrInvalidQubit, "%s over %d qubits, span %d", g.Kind, g.Target, layout.Span)
		}

		for q := 0; q < g.Target; q++ {
			if err := layout.Check(q); err != nil {
				return errors.Wrap(err, g.Kind.String())
			}
		}

		return nil
	}

	if _, ok := gateNames[g.Kind]; !ok {
		return errors.Wrapf(ErrUnknownGate, "kind %d", int(g.Kind))
	}

	if err := layout.Check(g.Target); err != nil {
		return errors.Wrap(err, g.Kind.String())
	}

	if want := g.Kind.controls(); len(g.Controls) != want {
		return errors.Errorf("%s takes %d control qubits, got %d", g.Kind, want, len(g.Controls))
	}

	for i, control := range g.Controls {
		if err := layout.Check(control); err != nil {
			return errors.Wrap(err, g.Kind.String())
		}

		if control == g.Target {
			return errors.Wrapf(ErrControlIsTarget, "%s on qubit %d", g.Kind, control)
		}

		for _, other := range g.Controls[:i] {
			if other == control {
				return errors.Wrapf(ErrControlIsTarget, "%s repeats control %d", g.Kind, control)
			}
		}
	}

	switch g.Kind {
	case GateSwap:
		if err := layout.Check(g.Partner); err != nil {
			return errors.Wrap(err, g.Kind.String())
		}
	case GateRotateX, GateRotateY, GateRotateZ, GatePhase, GatePhaseKick, GateCondPhaseKick:
		if math.IsNaN(g.Angle) || math.IsInf(g.Angle, 0) {
			return errors.Wrapf(ErrNonFiniteAngle, "%s angle %v", g.Kind, g.Angle)
		}
	case GateUnitary:
		if _, err := unitaryMatrix(g.Matrix); err != nil {
			return err
		}
	}

	return nil
}

func (k GateKind) controls() int {
	switch k {
	case GateCNOT, GateCondPhase, GateCondPhaseKick:
		return 1
	case GateToffoli:
		return 2
	default:
		return 0
	}
}

// matrix is a 2x2 operator indexed [output bit][input bit].
type matrix [2][2]complex128

var hadamard = matrix{
	{complex(math.Sqrt2/2, 0), complex(math.Sqrt2/2, 0)},
	{complex(math.Sqrt2/2, 0), complex(-math.Sqrt2/2, 0)},
}

var sigmaY = matrix{
	{0, -1i},
	{1i, 0},
}

func rotateX(gamma float64) matrix {
	c := complex(math.Cos(gamma/2), 0)
	s := complex(0, -math.Sin(gamma/2))
	return matrix{{c, s}, {s, c}}
}

func rotateY(gamma float64) matrix {
	c := complex(math.Cos(gamma/2), 0)
	s := complex(math.Sin(gamma/2), 0)
	return matrix{{c, -s}, {s, c}}
}

// unitaryTolerance bounds the deviation of U†U from the identity.
const unitaryTolerance = 1e-9

func unitaryMatrix(m *mat.CDense) (matrix, error) {
	if m == nil {
		return matrix{}, errors.Wrap(ErrNotUnitary, "nil matrix")
	}

	if r, c := m.Dims(); r != 2 || c != 2 {
		return matrix{}, errors.Wrapf(ErrNotUnitary, "dims %dx%d", r, c)
	}

	var out matrix
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			out[i][j] = m.At(i, j)
			if cmplx.IsNaN(out[i][j]) || cmplx.IsInf(out[i][j]) {
				return matrix{}, errors.Wrap(ErrNotUnitary, "non-finite element")
			}
		}
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var dot complex128
			for k := 0; k < 2; k++ {
				dot += cmplx.Conj(out[k][i]) * out[k][j]
			}

			want := complex(0, 0)
			if i == j {
				want = 1
			}

			if cmplx.Abs(dot-want) > unitaryTolerance {
				return matrix{}, errors.Wrapf(ErrNotUnitary, "column product (%d,%d) = %v", i, j, dot)
			}
		}
	}

	return out, nil
}
