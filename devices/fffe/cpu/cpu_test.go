package cpu

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/arch"
)

func TestDecode(t *testing.T) {
	i := Decode(0xab, 0xcd)

	cmp := func(name string, want, have int) {
		t.Helper()
		if want != have {
			t.Fatalf("%s mismatch:\nwant: %x\nhave: %x", name, want, have)
		}
	}

	cmp("c", 0xa, i.C)
	cmp("x", 0xb, i.X)
	cmp("y", 0xc, i.Y)
	cmp("n", 0xd, i.N)
	cmp("nn", 0xcd, i.NN)
	cmp("nnn", 0xbcd, i.NNN)
	cmp("word", 0xabcd, int(i.Word))
	cmp("op", arch.LDI, i.Op)
}

func TestDecodeTotal(t *testing.T) {
	for w := 0; w <= 0xffff; w++ {
		a, b := byte(w>>8), byte(w)
		i := Decode(a, b)

		if i.C != int(a>>4) || i.X != int(a&0xf) || i.Y != int(b>>4) ||
			i.N != int(b&0xf) || i.NN != int(b) || i.NNN != int(a&0xf)<<8|int(b) {
			t.Fatalf("decode mismatch for %04x: %+v", w, i)
		}

		if i != Decode(a, b) {
			t.Fatalf("decode of %04x is not deterministic", w)
		}
	}
}

func TestLDB(t *testing.T) {
	//   LD V3, #7f
	ct := newCodeTest()
	ct.emit(0x637f)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 3, 0x7f)
	wantPC(t, c, 0x202)
}

func TestADDB(t *testing.T) {
	//   LD  V0, #ff
	//   ADD V0, #02
	ct := newCodeTest()
	ct.emit(0x60ff, 0x7002)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x01)
	wantV(t, c, arch.VF, 0)
}

func TestADDRCarry(t *testing.T) {
	//   LD  V0, #ff
	//   LD  V1, #01
	//   ADD V0, V1
	ct := newCodeTest()
	ct.emit(0x60ff, 0x6101, 0x8014)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x00)
	wantV(t, c, arch.VF, 1)
}

func TestADDRNoCarry(t *testing.T) {
	//   LD  V0, #01
	//   LD  V1, #01
	//   LD  VF, #01
	//   ADD V0, V1
	ct := newCodeTest()
	ct.emit(0x6001, 0x6101, 0x6f01, 0x8014)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x02)
	wantV(t, c, arch.VF, 0)
}

func TestADDRIntoVF(t *testing.T) {
	//   LD  VF, #ff
	//   LD  V1, #02
	//   ADD VF, V1
	ct := newCodeTest()
	ct.emit(0x6fff, 0x6102, 0x8f14)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, arch.VF, 1)
}

func TestSUBBorrow(t *testing.T) {
	//   LD  V0, #05
	//   LD  V1, #0a
	//   SUB V0, V1
	ct := newCodeTest()
	ct.emit(0x6005, 0x610a, 0x8015)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0xfb)
	wantV(t, c, arch.VF, 0)
}

func TestSUBNoBorrow(t *testing.T) {
	//   LD  V0, #0a
	//   LD  V1, #05
	//   SUB V0, V1
	ct := newCodeTest()
	ct.emit(0x600a, 0x6105, 0x8015)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x05)
	wantV(t, c, arch.VF, 1)
}

func TestSUBEqual(t *testing.T) {
	//   LD  V0, #05
	//   LD  V1, #05
	//   SUB V0, V1
	ct := newCodeTest()
	ct.emit(0x6005, 0x6105, 0x8015)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x00)
	wantV(t, c, arch.VF, 0)
}

func TestSUBN(t *testing.T) {
	//   LD   V0, #05
	//   LD   V1, #0a
	//   SUBN V0, V1
	ct := newCodeTest()
	ct.emit(0x6005, 0x610a, 0x8017)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x05)
	wantV(t, c, arch.VF, 1)

	//   LD   V0, #0a
	//   LD   V1, #05
	//   SUBN V0, V1
	ct = newCodeTest()
	ct.emit(0x600a, 0x6105, 0x8017)
	ct.halt()

	c = runTest(t, ct)
	wantV(t, c, 0, 0xfb)
	wantV(t, c, arch.VF, 0)
}

func TestBitwise(t *testing.T) {
	//   LD  V0, #cc
	//   LD  V1, #aa
	//   LD  V2, V0
	//   OR  V2, V1
	//   LD  V3, V0
	//   AND V3, V1
	//   LD  V4, V0
	//   XOR V4, V1
	ct := newCodeTest()
	ct.emit(0x60cc, 0x61aa, 0x8200, 0x8211, 0x8300, 0x8312, 0x8400, 0x8413)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 2, 0xee)
	wantV(t, c, 3, 0x88)
	wantV(t, c, 4, 0x66)
}

func TestSHR(t *testing.T) {
	//   LD  V0, #05
	//   LD  V1, #ff
	//   SHR V0
	ct := newCodeTest()
	ct.emit(0x6005, 0x61ff, 0x8016)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x02)
	wantV(t, c, 1, 0xff)
	wantV(t, c, arch.VF, 1)
}

func TestSHL(t *testing.T) {
	//   LD  V0, #81
	//   SHL V0
	ct := newCodeTest()
	ct.emit(0x6081, 0x801e)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0x02)
	wantV(t, c, arch.VF, 1)

	//   LD  V1, #01
	//   SHL V1
	ct = newCodeTest()
	ct.emit(0x6101, 0x811e)
	ct.halt()

	c = runTest(t, ct)
	wantV(t, c, 1, 0x02)
	wantV(t, c, arch.VF, 0)
}

func TestSkips(t *testing.T) {
	//   LD  V0, #10
	//   LD  V1, #10
	//   SE  V0, #10   ; skips
	//   LD  V2, #01
	//   SNE V0, #10   ; no skip
	//   LD  V3, #01
	//   SE  V0, V1    ; skips
	//   LD  V4, #01
	//   SNE V0, V1    ; no skip
	//   LD  V5, #01
	ct := newCodeTest()
	ct.emit(0x6010, 0x6110, 0x3010, 0x6201, 0x4010, 0x6301, 0x5010, 0x6401, 0x9010, 0x6501)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 2, 0)
	wantV(t, c, 3, 1)
	wantV(t, c, 4, 0)
	wantV(t, c, 5, 1)
}

func TestJP(t *testing.T) {
	//   JP #206
	//   LD V0, #01
	//   LD V0, #02
	//   LD V1, #03
	ct := newCodeTest()
	ct.emit(0x1206, 0x6001, 0x6002, 0x6103)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 0)
	wantV(t, c, 1, 3)
}

func TestJPV0(t *testing.T) {
	//   LD V0, #04
	//   JP V0, #202   ; -> 206
	//   LD V1, #01
	//   LD V2, #02
	ct := newCodeTest()
	ct.emit(0x6004, 0xb202, 0x6101, 0x6202)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 1, 0)
	wantV(t, c, 2, 2)
}

func TestCALLRET(t *testing.T) {
	//   CALL #206
	//   LD   V1, #02
	//   JP   #20a
	//   LD   V0, #01   ; subroutine
	//   RET
	ct := newCodeTest()
	ct.emit(0x2206, 0x6102, 0x120a, 0x6001, 0x00ee)
	ct.halt()

	c := runTest(t, ct)
	wantV(t, c, 0, 1)
	wantV(t, c, 1, 2)

	if n := len(c.Stack()); n != 0 {
		t.Fatalf("stack depth mismatch:\nwant: 0\nhave: %d", n)
	}
}

func TestRETEmptyStack(t *testing.T) {
	ct := newCodeTest()
	ct.emit(0x00ee)

	err := runError(t, ct)
	if errors.Cause(err) != ErrStackUnderflow {
		t.Fatalf("error mismatch:\nwant: %v\nhave: %v", ErrStackUnderflow, err)
	}

	var rerr *Error
	if !errors.As(err, &rerr) || rerr.IP != ProgramStart || rerr.Word != 0x00ee {
		t.Fatalf("expected *Error at %04x; have %#v", ProgramStart, err)
	}
}

func TestCALLOverflow(t *testing.T) {
	//   CALL #200   ; recurses forever
	ct := newCodeTest()
	ct.emit(0x2200)

	err := runError(t, ct)
	if errors.Cause(err) != ErrStackOverflow {
		t.Fatalf("error mismatch:\nwant: %v\nhave: %v", ErrStackOverflow, err)
	}
}

func TestFetchOutOfRange(t *testing.T) {
	//   JP #fff
	ct := newCodeTest()
	ct.emit(0x1fff)

	err := runError(t, ct)
	if errors.Cause(err) != ErrAddress {
		t.Fatalf("error mismatch:\nwant: %v\nhave: %v", ErrAddress, err)
	}
}

func TestIndex(t *testing.T) {
	//   LD  I, #300
	//   LD  V0, #10
	//   ADD I, V0
	ct := newCodeTest()
	ct.emit(0xa300, 0x6010, 0xf01e)
	ct.halt()

	c := runTest(t, ct)
	wantI(t, c, 0x310)
}

func TestLDF(t *testing.T) {
	//   LD V0, #1a   ; only the low nibble counts
	//   LD F, V0
	ct := newCodeTest()
	ct.emit(0x601a, 0xf029)
	ct.halt()

	c := runTest(t, ct)
	wantI(t, c, 0xa*GlyphSize)

	glyph := make([]byte, GlyphSize)
	c.Memory().Read(c.I(), glyph)
	if !bytes.Equal(glyph, font[0xa*GlyphSize:0xb*GlyphSize]) {
		t.Fatalf("glyph mismatch:\nwant: %x\nhave: %x", font[0xa*GlyphSize:0xb*GlyphSize], glyph)
	}
}

func TestBCD(t *testing.T) {
	for _, tc := range []struct {
		value byte
		want  []byte
	}{
		{254, []byte{2, 5, 4}},
		{100, []byte{1, 0, 0}},
		{7, []byte{0, 0, 7}},
		{0, []byte{0, 0, 0}},
	} {
		//   LD I, #300
		//   LD V5, value
		//   LD B, V5
		ct := newCodeTest()
		ct.emit(0xa300, 0x6500|uint16(tc.value), 0xf533)
		ct.halt()

		c := runTest(t, ct)
		have := make([]byte, 3)
		c.Memory().Read(0x300, have)

		if !bytes.Equal(have, tc.want) {
			t.Fatalf("bcd of %d mismatch:\nwant: %v\nhave: %v", tc.value, tc.want, have)
		}
		wantI(t, c, 0x300)
	}
}

func TestBCDOutOfRange(t *testing.T) {
	//   LD I, #ffe
	//   LD B, V0
	ct := newCodeTest()
	ct.emit(0xaffe, 0xf033)

	err := runError(t, ct)
	if errors.Cause(err) != ErrAddress {
		t.Fatalf("error mismatch:\nwant: %v\nhave: %v", ErrAddress, err)
	}
}

func TestSTMLDM(t *testing.T) {
	ct := newCodeTest()

	//   LD Vn, n+1 for all registers
	for n := 0; n < 16; n++ {
		ct.emit(0x6000 | uint16(n)<<8 | uint16(n+1))
	}

	//   LD I, #300
	//   LD [I], VF
	ct.emit(0xa300, 0xff55)

	//   LD Vn, 0 for all registers
	for n := 0; n < 16; n++ {
		ct.emit(0x6000 | uint16(n)<<8)
	}

	//   LD VF, [I]
	ct.emit(0xff65)
	ct.halt()

	c := runTest(t, ct)
	wantI(t, c, 0x300)

	for n := 0; n < 16; n++ {
		wantV(t, c, n, byte(n+1))
		if have := c.Memory()[0x300+n]; have != byte(n+1) {
			t.Fatalf("memory mismatch at %04x:\nwant: %x\nhave: %x", 0x300+n, n+1, have)
		}
	}
}

func TestSTMOutOfRange(t *testing.T) {
	//   LD I, #ff8
	//   LD [I], VF
	ct := newCodeTest()
	ct.emit(0xaff8, 0xff55)

	err := runError(t, ct)
	if errors.Cause(err) != ErrAddress {
		t.Fatalf("error mismatch:\nwant: %v\nhave: %v", ErrAddress, err)
	}
}

func TestRND(t *testing.T) {
	//   RND V0, #0f
	ct := newCodeTest()
	ct.emit(0xc00f)
	ct.halt()

	a := runTestSeed(t, ct, 42)
	b := runTestSeed(t, ct, 42)

	if a.V(0)&0xf0 != 0 {
		t.Fatalf("mask not applied: %02x", a.V(0))
	}

	if a.V(0) != b.V(0) {
		t.Fatalf("same seed yields different values: %02x, %02x", a.V(0), b.V(0))
	}
}

func TestTimers(t *testing.T) {
	//   LD V0, #03
	//   LD DT, V0
	//   LD ST, V0
	ct := newCodeTest()
	ct.emit(0x6003, 0xf015, 0xf018)
	ct.halt()

	c := runTest(t, ct)
	if c.Delay() != 3 || c.Sound() != 3 {
		t.Fatalf("timer mismatch:\nwant: 3, 3\nhave: %d, %d", c.Delay(), c.Sound())
	}

	for i := 0; i < 5; i++ {
		c.Tick()
	}

	if c.Delay() != 0 || c.Sound() != 0 {
		t.Fatalf("timers must stop at zero; have %d, %d", c.Delay(), c.Sound())
	}

	c.Tick()
	if c.Delay() != 0 || c.Sound() != 0 {
		t.Fatalf("timers must stop at zero; have %d, %d", c.Delay(), c.Sound())
	}
}

func TestLDVDT(t *testing.T) {
	c := newCPU(t, nil)
	c.delay = 0x20
	c.Tick()

	if err := c.Execute(Decode(0xf7, 0x07)); err != nil {
		t.Fatal(err)
	}
	wantV(t, c, 7, 0x1f)
}

func TestSKPSKNP(t *testing.T) {
	//   LD   V0, #0b
	//   SKP  V0     ; skips
	//   LD   V1, #01
	//   SKNP V0     ; no skip
	//   LD   V2, #01
	ct := newCodeTest()
	ct.emit(0x600b, 0xe09e, 0x6101, 0xe0a1, 0x6201)
	ct.halt()
	ct.setup = func(c *CPU) { c.KeyChanged(0xb, true) }

	c := runTest(t, ct)
	wantV(t, c, 1, 0)
	wantV(t, c, 2, 1)
}

func TestLDKWait(t *testing.T) {
	//   LD V3, K
	//   LD V4, #01
	ct := newCodeTest()
	ct.emit(0xf30a, 0x6401)
	ct.halt()

	c := newCPU(t, nil)
	c.Load(ct.program.Bytes())

	for i := 0; i < 10; i++ {
		if err := c.Step(); err != nil {
			t.Fatal(err)
		}
		wantPC(t, c, 0x202)
		if c.Mode() != AwaitingKey {
			t.Fatalf("mode mismatch:\nwant: %v\nhave: %v", AwaitingKey, c.Mode())
		}
	}

	c.KeyChanged(0x9, true)
	c.KeyChanged(0x5, true)

	if err := c.Step(); err != nil {
		t.Fatal(err)
	}

	if c.Mode() != Running {
		t.Fatalf("mode mismatch:\nwant: %v\nhave: %v", Running, c.Mode())
	}
	wantV(t, c, 3, 0x5)
	wantPC(t, c, 0x202)

	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	wantV(t, c, 4, 1)
	wantPC(t, c, 0x204)
}

func TestLDKFetchExecute(t *testing.T) {
	//   LD V3, K
	//   LD V4, #01
	//   LD V5, #02
	ct := newCodeTest()
	ct.emit(0xf30a, 0x6401, 0x6502)
	ct.halt()

	c := newCPU(t, nil)
	c.Load(ct.program.Bytes())

	for i := 0; i < 3; i++ {
		instr, err := c.Fetch()
		if err != nil {
			t.Fatal(err)
		}

		if instr.Op != arch.LDK || instr.IP != ProgramStart {
			t.Fatalf("round %d: expected the held LD V3, K; have %s", i, &instr)
		}

		if err := c.Execute(instr); err != nil {
			t.Fatal(err)
		}

		wantPC(t, c, 0x202)
		wantV(t, c, 4, 0)
		wantV(t, c, 5, 0)
	}

	c.KeyChanged(0x7, true)
	for i := 0; i < 2; i++ {
		instr, err := c.Fetch()
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Execute(instr); err != nil {
			t.Fatal(err)
		}
	}

	wantV(t, c, 3, 0x7)
	wantV(t, c, 4, 1)
	wantPC(t, c, 0x204)
}

func TestLDKExecuteRepeated(t *testing.T) {
	c := newCPU(t, nil)
	instr := Decode(0xf2, 0x0a)

	for i := 0; i < 3; i++ {
		if err := c.Execute(instr); err != nil {
			t.Fatal(err)
		}
		wantPC(t, c, ProgramStart)
	}

	c.KeyChanged(0xe, true)
	if err := c.Execute(instr); err != nil {
		t.Fatal(err)
	}

	wantV(t, c, 2, 0xe)
	wantPC(t, c, ProgramStart)
}

func TestKeyChangedRange(t *testing.T) {
	c := newCPU(t, nil)
	c.KeyChanged(-1, true)
	c.KeyChanged(16, true)

	for k := 0; k < KeyCount; k++ {
		if c.Key(k) {
			t.Fatalf("key %x must not be down", k)
		}
	}
}

func TestUnknownInstructions(t *testing.T) {
	var buf bytes.Buffer

	//   SYS #123
	//   8XYF, 5XY1, E000, F0FF
	//   LD V0, #01
	ct := newCodeTest()
	ct.emit(0x0123, 0x801f, 0x5011, 0xe000, 0xf0ff, 0x6001)
	ct.halt()
	ct.setup = func(c *CPU) { c.SetLogger(log.New(&buf, "", 0)) }

	c := runTest(t, ct)
	wantV(t, c, 0, 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 reports; have %d:\n%s", len(lines), buf.String())
	}

	if !strings.Contains(lines[0], "machine code routine 123") {
		t.Fatalf("unexpected report: %q", lines[0])
	}

	if !strings.Contains(lines[1], "801f") {
		t.Fatalf("unexpected report: %q", lines[1])
	}
}

func TestStepNotStarted(t *testing.T) {
	c := New(nil, nil)
	if err := c.Step(); err != io.EOF {
		t.Fatalf("error mismatch:\nwant: %v\nhave: %v", io.EOF, err)
	}
}

func TestStartupTwice(t *testing.T) {
	c := newCPU(t, nil)
	if err := c.Startup(); err == nil {
		t.Fatalf("expected error on second Startup")
	}
}

func TestLoad(t *testing.T) {
	c := newCPU(t, nil)
	c.i = 0x345
	c.pc = 0x456
	c.Load([]byte{0x12, 0x34})

	wantPC(t, c, ProgramStart)
	wantI(t, c, ProgramStart)

	if have := c.Memory()[ProgramStart : ProgramStart+2]; !bytes.Equal(have, []byte{0x12, 0x34}) {
		t.Fatalf("memory mismatch:\nwant: 1234\nhave: %x", have)
	}

	if !bytes.Equal(c.Memory()[FontStart:FontStart+len(font)], font[:]) {
		t.Fatalf("font missing from memory")
	}
}

func TestInstructionString(t *testing.T) {
	i := Decode(0xd1, 0x25)
	i.IP = 0x210

	if have, want := i.String(), "0210 d125  DRW  V1, V2, 5"; have != want {
		t.Fatalf("string mismatch:\nwant: %q\nhave: %q", want, have)
	}
}

// runTest runs the program until it reaches its final self-jump.
func runTest(t *testing.T, ct *codeTest) *CPU {
	t.Helper()
	return runTestSeed(t, ct, 0)
}

func runTestSeed(t *testing.T, ct *codeTest, seed int64) *CPU {
	t.Helper()

	c := newCPU(t, ct.display)
	c.Seed(seed)
	if ct.setup != nil {
		ct.setup(c)
	}
	c.Load(ct.program.Bytes())

	for i := 0; i < 1000; i++ {
		pc := c.PC()
		if err := c.Step(); err != nil {
			t.Fatalf("Step failure: %v", err)
		}
		if c.PC() == pc && c.Mode() == Running {
			return c
		}
	}

	t.Fatalf("program did not halt")
	return nil
}

// runError runs the program until it fails and returns the error.
func runError(t *testing.T, ct *codeTest) error {
	t.Helper()

	c := newCPU(t, ct.display)
	c.Load(ct.program.Bytes())

	for i := 0; i < 1000; i++ {
		if err := c.Step(); err != nil {
			return err
		}
	}

	t.Fatalf("program did not fail")
	return nil
}

func newCPU(t *testing.T, display *recordingDisplay) *CPU {
	t.Helper()

	var c *CPU
	trace := func(i *Instruction) { t.Log(i) }

	if display == nil {
		c = New(nil, trace)
	} else {
		c = New(display, trace)
	}

	if err := c.Startup(); err != nil {
		t.Fatalf("Startup failure: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Shutdown(); err != nil {
			t.Fatalf("Shutdown failure: %v", err)
		}
	})

	return c
}

func wantV(t *testing.T, c *CPU, n int, want byte) {
	t.Helper()
	if have := c.V(n); have != want {
		t.Fatalf("%s mismatch:\nwant: %02x\nhave: %02x", arch.RegisterName(n), want, have)
	}
}

func wantPC(t *testing.T, c *CPU, want int) {
	t.Helper()
	if have := c.PC(); have != want {
		t.Fatalf("PC mismatch:\nwant: %04x\nhave: %04x", want, have)
	}
}

func wantI(t *testing.T, c *CPU, want int) {
	t.Helper()
	if have := c.I(); have != want {
		t.Fatalf("I mismatch:\nwant: %04x\nhave: %04x", want, have)
	}
}

type codeTest struct {
	program bytes.Buffer
	display *recordingDisplay
	setup   func(*CPU)
}

func newCodeTest() *codeTest {
	return &codeTest{}
}

// emit appends big-endian instruction words to the program.
func (ct *codeTest) emit(words ...uint16) {
	for _, w := range words {
		ct.program.WriteByte(byte(w >> 8))
		ct.program.WriteByte(byte(w))
	}
}

// halt appends a jump to itself, which runTest treats as the program end.
func (ct *codeTest) halt() {
	addr := ProgramStart + ct.program.Len()
	ct.emit(0x1000 | uint16(addr))
}
