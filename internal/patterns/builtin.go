package patterns

// builtinDefinitions is the ordered set of grammars shipped with the engine.
// Order matters only for filter-template preference and listing; line
// matching always picks the longest match.
var builtinDefinitions = []Definition{
	{
		// Unity (C): file:line:name:PASS|FAIL|IGNORE[:message]
		ID:           "unity",
		Description:  "Unity C unit-test harness",
		Regex:        `^(.+?):(\d+):(\w+):(PASS|FAIL|IGNORE)(?::\s*(.*))?$`,
		FileGroup:    1,
		LineGroup:    2,
		NameGroup:    3,
		StatusGroup:  4,
		MessageGroup: 5,
		Filter:       "${name}",
	},
	{
		// tests/test_math.cpp:42: FAILED: test_addition
		ID:           "cxx_status",
		Description:  "C++ file:line status reporters",
		Regex:        `^(.+?):(\d+):\s+(FAILED|PASSED|SKIPPED):\s+(\w+)(?:\s+-\s+(.*))?$`,
		FileGroup:    1,
		LineGroup:    2,
		StatusGroup:  3,
		NameGroup:    4,
		MessageGroup: 5,
		Filter:       `"${name}"`,
		Individual:   true,
	},
	{
		// [  PASSED  ] MatrixTest.test_create (5 ms)
		ID:          "gtest",
		Description: "GoogleTest",
		Regex:       `^\[\s*(OK|PASSED|FAILED|SKIPPED|DISABLED)\s*\]\s+([\w/]+)\.([\w/]+)(?:,.*?)?(?:\s+\(\d+\s*ms\))?\s*$`,
		StatusGroup: 1,
		SuiteGroup:  2,
		NameGroup:   3,
		Filter:      "--gtest_filter=${suite}.${name}",
		Individual:  true,
	},
	{
		// tests/check_money.c:18:F:Core:test_money_create:0: Assertion failed
		ID:           "check",
		Description:  "libcheck C unit tests",
		Regex:        `^(.+?):(\d+):([PFE]):([^:\s]+):([^:\s]+):\d+:\s*(.*)$`,
		FileGroup:    1,
		LineGroup:    2,
		StatusGroup:  3,
		SuiteGroup:   4,
		NameGroup:    5,
		MessageGroup: 6,
		Filter:       "CK_RUN_SUITE=${suite} CK_RUN_CASE=${name}",
		Individual:   true,
	},
	{
		// TEST CASE:  vector push_back
		// Assertion lines are consumed by the doctest context tracker.
		ID:          "doctest",
		Description: "doctest C++ (failing test-case headers)",
		Regex:       `^TEST CASE:\s+(.+?)\s*$`,
		NameGroup:   1,
		Status:      "FAIL",
		Filter:      `--test-case="${name}"`,
		Individual:  true,
	},
	{
		// 1/3 Test #1: math_add .........   Passed    0.01 sec
		ID:          "ctest",
		Description: "CTest summary lines",
		Regex:       `^\s*\d+/\d+\s+Test\s+#\d+:\s+(\S+)\s+\.*\s*(Passed|\*{3}Failed|\*{3}Timeout|\*{3}Skipped|\*{3}Not Run|Not Run|Failed)`,
		NameGroup:   1,
		StatusGroup: 2,
		Filter:      "-R ^${name}$",
		Individual:  true,
	},
	{
		// --- FAIL: TestParse (0.00s)
		ID:          "gotest",
		Family:      "go",
		Description: "go test verbose output",
		Regex:       `^\s*--- (PASS|FAIL|SKIP): (\S+) \([\d.]+s\)`,
		StatusGroup: 1,
		NameGroup:   2,
		Filter:      "-run ^${name}$",
		Individual:  true,
		RuleKinds:   []string{"go_test"},
	},
	{
		// test tests::it_adds ... ok
		ID:          "rust",
		Family:      "rust",
		Description: "Rust libtest",
		Regex:       `^test (\S+)(?: - should panic)? \.\.\. (ok|FAILED|ignored)`,
		NameGroup:   1,
		StatusGroup: 2,
		Filter:      "${name} --exact",
		Individual:  true,
		RuleKinds:   []string{"rust_test"},
	},
	{
		// thread 'tests::it_fails' panicked at src/lib.rs:12:9:
		// thread 'tests::it_fails' panicked at 'boom', src/lib.rs:12:9
		ID:           "rust_panic",
		Family:       "rust",
		Description:  "Rust libtest panic locations",
		Regex:        `^thread '([^']+)' panicked at (?:'(.*)', )?([^\s:]+):(\d+)(?::\d+)?:?\s*$`,
		NameGroup:    1,
		MessageGroup: 2,
		FileGroup:    3,
		LineGroup:    4,
		Status:       "FAIL",
		RuleKinds:    []string{"rust_test"},
	},
	{
		// tests/test_calc.py::TestCalc::test_add PASSED
		ID:          "pytest",
		Family:      "pytest",
		Description: "pytest verbose",
		Regex:       `^(\S+?\.py)::(?:(\w+)::)?(\S+?)\s+(PASSED|FAILED|SKIPPED|ERROR|XFAIL|XPASS)\b`,
		FileGroup:   1,
		ClassGroup:  2,
		NameGroup:   3,
		StatusGroup: 4,
		Filter:      "${file}::${class}::${name}",
		Individual:  true,
		RuleKinds:   []string{"py_test"},
	},
	{
		// tests/test_calc.py:14: test_add FAILED - assert 1 == 2
		ID:           "pytest_loc",
		Family:       "pytest",
		Description:  "pytest located result lines",
		Regex:        `^(\S+?\.py):(\d+):\s+(?:(\w+)\.)?(\w+(?:\[[^\]]*\])?)\s+(PASSED|FAILED|SKIPPED|ERROR|XFAIL|XPASS)(?:\s+-\s+(.*))?$`,
		FileGroup:    1,
		LineGroup:    2,
		ClassGroup:   3,
		NameGroup:    4,
		StatusGroup:  5,
		MessageGroup: 6,
		Filter:       "${file}::${name}",
		Individual:   true,
		RuleKinds:    []string{"py_test"},
	},
	{
		// FAILED tests/test_calc.py::test_add - assert 1 == 2
		ID:           "pytest_summary",
		Family:       "pytest",
		Description:  "pytest short test summary",
		Regex:        `^(FAILED|ERROR) (\S+?\.py)::(?:(\w+)::)?(\S+?)(?: - (.*))?$`,
		StatusGroup:  1,
		FileGroup:    2,
		ClassGroup:   3,
		NameGroup:    4,
		MessageGroup: 5,
		Filter:       "${file}::${name}",
		Individual:   true,
		RuleKinds:    []string{"py_test"},
	},
	{
		// test_add (tests.test_math.TestMath) ... ok
		ID:          "unittest",
		Family:      "unittest",
		Description: "Python unittest verbose",
		Regex:       `^(\w+) \(([\w.]+)\)(?:\s+\S.*?)? \.\.\. (ok|FAIL|ERROR|skipped|expected failure|unexpected success)`,
		NameGroup:   1,
		ClassGroup:  2,
		StatusGroup: 3,
		Filter:      "${class}.${name}",
		Individual:  true,
		RuleKinds:   []string{"py_test"},
	},
	{
		// │  ├─ testAdd() ✔
		ID:           "junit",
		Family:       "junit",
		Description:  "JUnit Platform console launcher tree",
		Regex:        `^[\s│├└─]*(\w+)\(\)\s+([✔✘↷])(?:\s+(.*))?$`,
		NameGroup:    1,
		StatusGroup:  2,
		MessageGroup: 3,
		Filter:       "--select-method=${class}#${name}",
		Individual:   true,
		RuleKinds:    []string{"java_test", "junit_test"},
	},
	{
		// [ERROR] testAdd(com.example.MathTest)  Time elapsed: 0.01 s  <<< FAILURE!
		ID:          "surefire",
		Family:      "junit",
		Description: "Maven Surefire (2.x)",
		Regex:       `^\[ERROR\]\s+(\w+)\(([\w.$]+)\)\s+Time elapsed:.*?<<<\s+(FAILURE|ERROR)!`,
		NameGroup:   1,
		ClassGroup:  2,
		StatusGroup: 3,
		Filter:      "-Dtest=${class}#${name}",
		Individual:  true,
		RuleKinds:   []string{"java_test"},
	},
	{
		// [ERROR] com.example.MathTest.testAdd -- Time elapsed: 0.01 s <<< FAILURE!
		ID:          "surefire3",
		Family:      "junit",
		Description: "Maven Surefire (3.x)",
		Regex:       `^\[ERROR\]\s+([\w.$]+)\.(\w+)\s+--\s+Time elapsed:.*?<<<\s+(FAILURE|ERROR)!`,
		ClassGroup:  1,
		NameGroup:   2,
		StatusGroup: 3,
		Filter:      "-Dtest=${class}#${name}",
		Individual:  true,
		RuleKinds:   []string{"java_test"},
	},
	{
		// com.example.MathTest > testAdd() FAILED
		ID:          "gradle",
		Family:      "junit",
		Description: "Gradle test logging",
		Regex:       `^([\w.$]+) > (\w+)\(\)(?:\[\d+\])? (PASSED|FAILED|SKIPPED)`,
		ClassGroup:  1,
		NameGroup:   2,
		StatusGroup: 3,
		Filter:      "--tests ${class}.${name}",
		Individual:  true,
		RuleKinds:   []string{"java_test", "kt_jvm_test"},
	},
	{
		// //app:math_test    (cached) PASSED in 0.4s
		ID:          "bazel",
		Description: "Bazel per-target test summary",
		Regex:       `^(//\S+|@\S*//\S+)\s+(?:\(cached\)\s+)?(PASSED|FAILED|TIMEOUT|FLAKY|NO STATUS|SKIPPED)\b`,
		NameGroup:   1,
		StatusGroup: 2,
	},
}
