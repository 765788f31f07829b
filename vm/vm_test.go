package vm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/value"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	input    string
	expected string
}

func runTests(t *testing.T, tests []testCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := run(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, out)
		})
	}
}

func TestEmptyProgram(t *testing.T) {
	out, err := run("")
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestLiterals(t *testing.T) {
	runTests(t, []testCase{
		{`print nil;`, "nil\n"},
		{`print true;`, "true\n"},
		{`print false;`, "false\n"},
		{`print 42;`, "42\n"},
		{`print 3.5;`, "3.5\n"},
		{`print "hello";`, "hello\n"},
		{`print "";`, "\n"},
	})
}

func TestArithmetic(t *testing.T) {
	runTests(t, []testCase{
		{`print 1 + 2;`, "3\n"},
		{`print 7 - 2 * 3;`, "1\n"},
		{`print (1 + 2) * 3;`, "9\n"},
		{`print 10 / 4;`, "2.5\n"},
		{`print -3;`, "-3\n"},
		{`print --3;`, "3\n"},
		{`print 2 * -3 + 1;`, "-5\n"},
		{`print 0.1 + 0.2;`, "0.30000000000000004\n"},
		{`print 100000;`, "100000\n"},
		{`print 1000000;`, "1e+06\n"},
		{`print 1 / 0;`, "inf\n"},
		{`print -1 / 0;`, "-inf\n"},
		{`var z = 0; print z / z;`, "nan\n"},
	})
}

func TestComparisons(t *testing.T) {
	runTests(t, []testCase{
		{`print 1 < 2;`, "true\n"},
		{`print 2 < 1;`, "false\n"},
		{`print 2 <= 2;`, "true\n"},
		{`print 2 >= 3;`, "false\n"},
		{`print 3 > 2;`, "true\n"},
		{`print 1 == 1;`, "true\n"},
		{`print 1 != 1;`, "false\n"},
		{`print "a" == "a";`, "true\n"},
		{`print "a" == "b";`, "false\n"},
		{`print nil == nil;`, "true\n"},
		{`print nil == false;`, "false\n"},
		{`print 0 == false;`, "false\n"},
		{`print "1" == 1;`, "false\n"},
		{`var z = 0; var n = z / z; print n == n;`, "false\n"},
	})
}

func TestTruthiness(t *testing.T) {
	runTests(t, []testCase{
		{`print !nil;`, "true\n"},
		{`print !false;`, "true\n"},
		{`print !true;`, "false\n"},
		{`print !0;`, "false\n"},
		{`print !"";`, "false\n"},
		{`if (0) print "yes"; else print "no";`, "yes\n"},
		{`if (nil) print "yes"; else print "no";`, "no\n"},
	})
}

func TestLogicalOperators(t *testing.T) {
	runTests(t, []testCase{
		{`print nil or "x";`, "x\n"},
		{`print "a" or "b";`, "a\n"},
		{`print 1 and 2;`, "2\n"},
		{`print false and 1;`, "false\n"},
		{`print nil and undefined;`, "nil\n"},
		{`print true or undefined;`, "true\n"},
	})
}

func TestStringConcatenation(t *testing.T) {
	runTests(t, []testCase{
		{`print "a" + "b";`, "ab\n"},
		{`var a = "ab"; var b = "a" + "b"; print a == b;`, "true\n"},
		{`var s = ""; for (var i = 0; i < 3; i = i + 1) s = s + "x"; print s;`, "xxx\n"},
	})
}

func TestVariables(t *testing.T) {
	runTests(t, []testCase{
		{`var a; print a;`, "nil\n"},
		{`var a = 1; a = 2; print a;`, "2\n"},
		{`var a = 1; var a = 2; print a;`, "2\n"},
		{`var a = 1; var b = 2; a = b = 3; print a + b;`, "6\n"},
		{`{ var a = 1; { var b = a + 1; print b; } }`, "2\n"},
	})
}

func TestScopes(t *testing.T) {
	out, err := run(`
var a = "global";
{
  var a = "outer";
  {
    var a = "inner";
    print a;
  }
  print a;
}
print a;`)
	require.NoError(t, err)
	require.Equal(t, "inner\nouter\nglobal\n", out)
}

func TestControlFlow(t *testing.T) {
	runTests(t, []testCase{
		{`if (true) print 1; else print 2;`, "1\n"},
		{`if (false) print 1; else print 2;`, "2\n"},
		{`if (false) print 1; print 3;`, "3\n"},
		{`var i = 0; while (i < 3) { print i; i = i + 1; }`, "0\n1\n2\n"},
		{`for (var i = 0; i < 3; i = i + 1) print i;`, "0\n1\n2\n"},
		{`var i = 0; for (; i < 2;) { print i; i = i + 1; }`, "0\n1\n"},
		{`for (var i = 0; i < 3;) { print i; i = i + 2; }`, "0\n2\n"},
	})
}

func TestFunctions(t *testing.T) {
	runTests(t, []testCase{
		{`fun f() { return 1; } print f();`, "1\n"},
		{`fun f() {} print f();`, "nil\n"},
		{`fun f() { return; } print f();`, "nil\n"},
		{`fun add(a, b, c) { return a + b + c; } print add(1, 2, 3);`, "6\n"},
		{`fun f() {} print f;`, "<fn f>\n"},
		{`print clock;`, "<native fn>\n"},
		{`fun f() { print "side effect"; } f();`, "side effect\n"},
		{`fun outer() { fun inner() { return "in"; } return inner(); } print outer();`, "in\n"},
	})
}

func TestRecursion(t *testing.T) {
	out, err := run(`
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(15);`)
	require.NoError(t, err)
	require.Equal(t, "610\n", out)
}

func TestLocalRecursion(t *testing.T) {
	out, err := run(`
{
  fun count(n) {
    if (n > 0) count(n - 1);
    print n;
  }
  count(2);
}`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestClosureCounter(t *testing.T) {
	out, err := run(`
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    return i;
  }
  return count;
}
var c1 = makeCounter();
var c2 = makeCounter();
print c1();
print c1();
print c2();
print c1;`)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n1\n<fn count>\n", out)
}

func TestClosureOutlivesFrame(t *testing.T) {
	out, err := run(`
fun outer() {
  var x = "outside";
  fun inner() { print x; }
  return inner;
}
var closure = outer();
closure();`)
	require.NoError(t, err)
	require.Equal(t, "outside\n", out)
}

func TestClosuresShareUpvalue(t *testing.T) {
	out, err := run(`
var get;
var set;
fun make() {
  var x = "a";
  fun g() { return x; }
  fun s(v) { x = v; }
  get = g;
  set = s;
}
make();
set("b");
print get();`)
	require.NoError(t, err)
	require.Equal(t, "b\n", out)
}

func TestClosedUpvalueSeesLastAssignment(t *testing.T) {
	out, err := run(`
var f;
{
  var a = 1;
  fun show() { print a; }
  a = 2;
  f = show;
}
f();`)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestLoopVariableIsShared(t *testing.T) {
	out, err := run(`
var globalOne;
var globalTwo;
fun main() {
  for (var a = 1; a <= 2; a = a + 1) {
    fun closure() { print a; }
    if (globalOne == nil) {
      globalOne = closure;
    } else {
      globalTwo = closure;
    }
  }
}
main();
globalOne();
globalTwo();`)
	require.NoError(t, err)
	require.Equal(t, "3\n3\n", out)
}

func TestNestedUpvalues(t *testing.T) {
	out, err := run(`
fun outer() {
  var a = 1;
  var b = 2;
  fun middle() {
    var c = 3;
    fun inner() { return a + b + c; }
    return inner;
  }
  return middle;
}
print outer()()();`)
	require.NoError(t, err)
	require.Equal(t, "6\n", out)
}

func TestClasses(t *testing.T) {
	out, err := run(`
class Pair {}
var p = Pair();
p.first = 1;
p.second = 2;
print p.first + p.second;
print p;
print Pair;`)
	require.NoError(t, err)
	require.Equal(t, "3\nPair instance\nPair\n", out)
}

func TestMethodsAndThis(t *testing.T) {
	out, err := run(`
class Scone {
  topping(first, second) {
    print "scone with " + first + " and " + second;
  }
}
var scone = Scone();
scone.topping("berries", "cream");

class Counter {
  init() { this.n = 0; }
  inc() { this.n = this.n + 1; return this; }
}
print Counter().inc().inc().n;`)
	require.NoError(t, err)
	require.Equal(t, "scone with berries and cream\n2\n", out)
}

func TestInitializer(t *testing.T) {
	out, err := run(`
class Brioche {
  init(x) { this.x = x; }
  get() { return this.x; }
}
print Brioche(3).get();
var b = Brioche(4);
print b.init(5).x;
print b.x;
class Early {
  init() { this.a = 1; return; this.a = 2; }
}
print Early().a;`)
	require.NoError(t, err)
	require.Equal(t, "3\n5\n5\n1\n", out)
}

func TestBoundMethods(t *testing.T) {
	out, err := run(`
class A {
  init(n) { this.n = n; }
  say() { print this.n; }
}
var m = A("bound").say;
m();
print m;
class B {
  method() {
    fun inner() { return this; }
    return inner;
  }
}
var b = B();
print b.method()() == b;`)
	require.NoError(t, err)
	require.Equal(t, "bound\n<fn say>\ntrue\n", out)
}

func TestFieldShadowsMethod(t *testing.T) {
	out, err := run(`
class A {
  f() { return "method"; }
}
var a = A();
print a.f();
fun g() { return "field"; }
a.f = g;
print a.f();
var h = a.f;
print h();`)
	require.NoError(t, err)
	require.Equal(t, "method\nfield\nfield\n", out)
}

func TestInheritance(t *testing.T) {
	out, err := run(`
class A {
  method() { print "A method"; }
  other() { print "A other"; }
}
class B < A {
  method() { print "B method"; }
  test() { super.method(); }
  getter() { var m = super.method; m(); }
}
class C < B {}
C().test();
C().method();
C().other();
C().getter();`)
	require.NoError(t, err)
	require.Equal(t, "A method\nB method\nA other\nA method\n", out)
}

func TestInheritedInitializer(t *testing.T) {
	out, err := run(`
class Base {
  init(a) { this.a = a; }
}
class Derived < Base {
  init(a, b) {
    super.init(a);
    this.b = b;
  }
}
var d = Derived(1, 2);
print d.a + d.b;
class Plain < Base {}
print Plain(7).a;`)
	require.NoError(t, err)
	require.Equal(t, "3\n7\n", out)
}

func TestInheritanceCopiesMethods(t *testing.T) {
	// Methods added to the superclass after inheritance are not seen
	out, err := run(`
class A { f() { return "A"; } }
class B < A {}
class A { f() { return "new A"; } }
print B().f();`)
	require.NoError(t, err)
	require.Equal(t, "A\n", out)
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		kind     errz.ErrorKind
	}{
		{`print -"a";`, "Operand must be a number.", errz.ErrType},
		{`print 1 + "a";`, "Operands must be two numbers or two strings.", errz.ErrType},
		{`print 1 + nil;`, "Operands must be two numbers or two strings.", errz.ErrType},
		{`print 1 < "a";`, "Operands must be numbers.", errz.ErrType},
		{`print "a" * 2;`, "Operands must be numbers.", errz.ErrType},
		{`print x;`, "Undefined variable 'x'.", errz.ErrName},
		{`x = 1;`, "Undefined variable 'x'.", errz.ErrName},
		{`fun f(a) {} f();`, "Expected 1 arguments but got 0.", errz.ErrArity},
		{`fun f() {} f(1, 2);`, "Expected 0 arguments but got 2.", errz.ErrArity},
		{`"a"();`, "Can only call functions and classes.", errz.ErrType},
		{`nil();`, "Can only call functions and classes.", errz.ErrType},
		{`var a = 1; print a.x;`, "Only instances have properties.", errz.ErrType},
		{`var a = 1; a.x = 1;`, "Only instances have fields.", errz.ErrType},
		{`var a = "s"; a.x();`, "Only instances have methods.", errz.ErrType},
		{`class A {} print A().x;`, "Undefined property 'x'.", errz.ErrName},
		{`class A {} A().x();`, "Undefined property 'x'.", errz.ErrName},
		{`var B = 1; class A < B {}`, "Superclass must be a class.", errz.ErrType},
		{`class A {} A(1);`, "Expected 0 arguments but got 1.", errz.ErrArity},
		{`class A { init(a, b) {} } A(1);`, "Expected 2 arguments but got 1.", errz.ErrArity},
		{`clock(1);`, "Expected 0 arguments but got 1.", errz.ErrArity},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := run(tt.input)
			require.Error(t, err)
			var rerr *errz.RuntimeError
			require.True(t, errors.As(err, &rerr))
			require.Equal(t, tt.expected, rerr.Message)
			require.Equal(t, tt.kind, rerr.Kind)
			require.Equal(t, tt.expected+"\n[line 1] in script", err.Error())
		})
	}
}

func TestUndefinedNameHints(t *testing.T) {
	tests := []struct {
		input string
		hint  string
	}{
		{`var count = 1; print cuont;`, "Did you mean 'count'?"},
		{`var total = 1; totl = 2;`, "Did you mean 'total'?"},
		{`print clok();`, "Did you mean 'clock'?"},
		{`print zzzzzz;`, ""},
		{`class A { speak() {} } A().speek();`, "Did you mean 'speak'?"},
		{`class A { init() { this.width = 1; } } print A().widht;`, "Did you mean 'width'?"},
		{`class A { a() {} b() {} } A().c();`, "Did you mean one of: 'a', 'b'?"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := run(tt.input)
			var rerr *errz.RuntimeError
			require.True(t, errors.As(err, &rerr))
			require.Equal(t, errz.ErrName, rerr.Kind)
			require.Equal(t, tt.hint, rerr.Hint)
			require.NotContains(t, err.Error(), "Did you mean")
		})
	}
}

func TestRuntimeErrorLine(t *testing.T) {
	_, err := run("var a = 1;\nvar b = \"x\";\nprint a - b;")
	require.Error(t, err)
	require.Equal(t, "Operands must be numbers.\n[line 3] in script", err.Error())
}

func TestStackTrace(t *testing.T) {
	_, err := run(`fun a() { b(); }
fun b() { c(); }
fun c() {
  c("too", "many");
}
a();`)
	require.Error(t, err)
	require.Equal(t, strings.Join([]string{
		"Expected 0 arguments but got 2.",
		"[line 4] in c()",
		"[line 2] in b()",
		"[line 1] in a()",
		"[line 6] in script",
	}, "\n"), err.Error())

	var rerr *errz.RuntimeError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, 4, rerr.Line())
	require.Len(t, rerr.Stack, 4)
}

func TestMethodStackTrace(t *testing.T) {
	_, err := run(`class A {
  say() { return this.missing; }
}
A().say();`)
	require.Error(t, err)
	require.Equal(t, "Undefined property 'missing'.\n[line 2] in say()\n[line 4] in script", err.Error())
}

func TestStackOverflow(t *testing.T) {
	_, err := run(`fun f() { f(); } f();`)
	require.Error(t, err)
	var rerr *errz.RuntimeError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, errz.ErrOverflow, rerr.Kind)
	require.Equal(t, "Stack overflow.", rerr.Message)
	require.Len(t, rerr.Stack, FramesMax)
}

func TestValueStackOverflow(t *testing.T) {
	machine := New()
	machine.sp = StackMax
	require.PanicsWithValue(t, errStackOverflow, func() {
		machine.push(value.NilValue)
	})
	err := machine.recoverError(errStackOverflow)
	var rerr *errz.RuntimeError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, errz.ErrOverflow, rerr.Kind)
	require.Equal(t, "Stack overflow.", rerr.Message)
	require.ErrorIs(t, err, errStackOverflow)
}

func TestCompileErrorRunsNothing(t *testing.T) {
	out, err := run(`print "first"; print ;`)
	require.Error(t, err)
	require.Equal(t, "", out)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	errs := compiler.Errors(err)
	require.Len(t, errs, 1)
	require.Equal(t, "[line 1] Error at ';': Expect expression.", errs[0].Error())
}

func TestGlobalsPersistAcrossInterpret(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out))
	require.NoError(t, machine.Interpret(`var a = 1;`))
	require.NoError(t, machine.Interpret(`fun inc() { a = a + 1; }`))
	require.NoError(t, machine.Interpret(`inc(); print a;`))
	require.Equal(t, "2\n", out.String())

	v, ok := machine.Get("a")
	require.True(t, ok)
	require.Equal(t, value.NewNumber(2), v)
	require.Contains(t, machine.GlobalNames(), "clock")
	require.Contains(t, machine.GlobalNames(), "inc")
}

func TestRecoveryAfterRuntimeError(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out))
	err := machine.Interpret(`var a = "kept"; fun f() { return missing; } f();`)
	require.Error(t, err)
	require.Equal(t, 0, machine.sp)
	require.Equal(t, 0, machine.frameCount)
	require.Empty(t, machine.openUpvalues)

	require.NoError(t, machine.Interpret(`print a;`))
	require.Equal(t, "kept\n", out.String())

	// A failed assignment does not define the global
	require.Error(t, machine.Interpret(`b = 1;`))
	require.Error(t, machine.Interpret(`print b;`))
}

func TestEscapedClosureSurvivesRuntimeError(t *testing.T) {
	failing := `
var g;
fun f() {
  var x = "captured";
  fun h() { return x; }
  g = h;
  nil();
}
f();`
	next := `
var a = 1;
var b = 2;
fun k(p, q, r) { print g(); }
k("p", "q", "r");`

	for _, stress := range []bool{false, true} {
		t.Run(fmt.Sprintf("stress=%v", stress), func(t *testing.T) {
			var out bytes.Buffer
			machine := New(WithOutput(&out), WithGCStress(stress))
			err := machine.Interpret(failing)
			require.Error(t, err)
			require.Equal(t, "Can only call functions and classes.\n[line 7] in f()\n[line 9] in script", err.Error())
			require.Empty(t, machine.openUpvalues)

			require.NoError(t, machine.Interpret(next))
			require.Equal(t, "captured\n", out.String())
		})
	}
}

func TestClock(t *testing.T) {
	runTests(t, []testCase{
		{`print clock() >= 0;`, "true\n"},
		{`var start = clock(); var end = clock(); print end >= start;`, "true\n"},
	})
}

func TestWithNative(t *testing.T) {
	add := func(args []value.Value) (value.Value, error) {
		a, aok := args[0].AsNumber()
		b, bok := args[1].AsNumber()
		if !aok || !bok {
			return value.NilValue, errors.New("add: numbers required")
		}
		return value.NewNumber(a + b), nil
	}
	out, err := run(`print add(1, 2);`, WithNative("add", 2, add))
	require.NoError(t, err)
	require.Equal(t, "3\n", out)

	_, err = run(`add("a", 2);`, WithNative("add", 2, add))
	require.Error(t, err)
	require.Equal(t, "add: numbers required\n[line 1] in script", err.Error())

	var count int
	variadic := func(args []value.Value) (value.Value, error) {
		count = len(args)
		return value.NilValue, nil
	}
	_, err = run(`count(1, 2, 3, 4);`, WithNative("count", -1, variadic))
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestNativeErrorCause(t *testing.T) {
	boom := errors.New("boom")
	_, err := run(`fail();`, WithNative("fail", 0, func([]value.Value) (value.Value, error) {
		return value.NilValue, boom
	}))
	require.ErrorIs(t, err, boom)
}

const gcProgram = `
class Node {
  init(value, next) {
    this.value = value;
    this.next = next;
  }
}
fun build(n) {
  var list = nil;
  for (var i = 0; i < n; i = i + 1) {
    list = Node("item" + "-" + "x", list);
  }
  return list;
}
fun makeAdder(n) {
  fun add(x) { return x + n; }
  return add;
}
var total = 0;
for (var round = 0; round < 5; round = round + 1) {
  var list = build(10);
  var adder = makeAdder(round);
  while (list != nil) {
    total = adder(total);
    list = list.next;
  }
}
print total;
var s = "";
for (var i = 0; i < 5; i = i + 1) s = s + "ab";
print s;
`

func TestGCStressMatchesNormalRun(t *testing.T) {
	normal, err := run(gcProgram)
	require.NoError(t, err)
	require.Equal(t, "100\nababababab\n", normal)

	var out bytes.Buffer
	machine := New(WithOutput(&out), WithGCStress(true))
	require.NoError(t, machine.Interpret(gcProgram))
	require.Equal(t, normal, out.String())
	stats := machine.Stats()
	require.Greater(t, stats.Collections, 100)
	require.Greater(t, stats.ObjectsFreed, 0)
}

func TestGCFreesGarbage(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out), WithGCThreshold(4096), WithGCGrowFactor(1.5))
	require.NoError(t, machine.Interpret(`
class T {}
for (var i = 0; i < 2000; i = i + 1) {
  var t = T();
  t.field = i;
}
print "done";`))
	require.Equal(t, "done\n", out.String())
	stats := machine.Stats()
	require.Greater(t, stats.Collections, 0)
	require.Greater(t, stats.ObjectsFreed, 1000)
	require.Less(t, stats.ObjectsLive, 200)
}

func TestGCKeepsGlobalsAndUpvalues(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out), WithGCStress(true))
	require.NoError(t, machine.Interpret(`
fun make() {
  var kept = "upvalue";
  fun get() { return kept; }
  return get;
}
var getter = make();
var name = "global";`))
	machine.Heap().Collect()
	require.NoError(t, machine.Interpret(`print getter(); print name;`))
	require.Equal(t, "upvalue\nglobal\n", out.String())
}

func TestLoggerCarriesVMID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	machine := New(WithLogger(logger), WithOutput(&bytes.Buffer{}), WithGCStress(true))
	require.NoError(t, machine.Interpret(`print "x" + "y";`))
	logs := buf.String()
	require.Contains(t, logs, fmt.Sprintf(`"vm":"%s"`, machine.ID()))
	require.Contains(t, logs, "gc end")
	require.Contains(t, logs, "run complete")
}

func TestHeapIsShared(t *testing.T) {
	machine := New(WithOutput(&bytes.Buffer{}))
	require.NoError(t, machine.Interpret(`var s = "shared";`))
	v, ok := machine.Get("s")
	require.True(t, ok)
	require.Equal(t, "shared", machine.Format(v))
	require.Equal(t, object.STRING, machine.Heap().TypeOf(v))
}
