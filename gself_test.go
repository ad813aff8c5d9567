package gself_test

import (
	"testing"

	"gself/testutils"
)

func TestArithmeticScripts(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"add":        {Source: "3 + 4", Pass: testutils.PassInteger(7)},
		"leftAssoc":  {Source: "2 + 3 * 4", Pass: testutils.PassInteger(20)},
		"modulo":     {Source: "10 % 3", Pass: testutils.PassInteger(1)},
		"floats":     {Source: "1.5 + 2.25", Pass: testutils.PassFormatted("3.75")},
		"mixed":      {Source: "1.5 * 2", Pass: testutils.PassFormatted("3")},
		"divByZero":  {Source: "1 / 0", Pass: testutils.PassFailure()},
		"comparison": {Source: "3 < 4", Pass: testutils.PassFormatted("true")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}

func TestObjectScripts(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"dataSlot":   {Source: "(| x <- 5 |) x", Pass: testutils.PassInteger(5)},
		"method":     {Source: "(| x <- 5. double = ( x * 2 ) |) double", Pass: testutils.PassInteger(10)},
		"assignment": {Source: "(| x <- 1. bump = ( x: x + 1. x ) |) bump", Pass: testutils.PassInteger(2)},
		"keyword":    {Source: "(| at: i Put: v = ( i + v ) |) at: 3 Put: 4", Pass: testutils.PassInteger(7)},
		"parent":     {Source: "(| p* = (| answer = ( 42 ) |) |) answer", Pass: testutils.PassInteger(42)},
		"missing":    {Source: "(| x <- 1 |) y", Pass: testutils.PassFailure()},
		"constant":   {Source: "(| k = 5 |) k: 9", Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}

func TestBlockScripts(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"value":     {Source: "[| :n | n * n ] value: 7", Pass: testutils.PassInteger(49)},
		"twoArgs":   {Source: "[| :a. :b | a + b ] value: 3 With: 4", Pass: testutils.PassInteger(7)},
		"closure":   {Source: "(| run = ( | c <- 0 | [ c: c + 1 ] value. c ) |) run", Pass: testutils.PassInteger(1)},
		"loop":      {Source: "(| run = ( | i <- 0 | [ i < 5 ] whileTrue: [ i: i + 1 ]. i ) |) run", Pass: testutils.PassInteger(5)},
		"nonlocal":  {Source: "(| m = ( [ ^ 5 ] value. 6 ) |) m", Pass: testutils.PassInteger(5)},
		"escaped":   {Source: "(| m = ( [ ^ 1 ] ) |) m value", Pass: testutils.PassFailure()},
		"wrongArgs": {Source: "[| :n | n ] value", Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}

func TestStringScripts(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"size":      {Source: "'abc' size", Pass: testutils.PassInteger(3)},
		"emptySize": {Source: "'' size", Pass: testutils.PassInteger(0)},
		"concat":    {Source: "'foo' , 'bar'", Pass: testutils.PassFormatted("'foobar'")},
		"equal":     {Source: "'abc' = 'abc'", Pass: testutils.PassFormatted("true")},
		"upper":     {Source: "'aBc' asUppercase", Pass: testutils.PassFormatted("'ABC'")},
		"byteAt":    {Source: "'abc' byteAt: 1", Pass: testutils.PassInteger(98)},
		"badByte":   {Source: "'abc' byteAt: 9", Pass: testutils.PassFailure()},
		"negByte":   {Source: "'abc' byteAt: -1", Pass: testutils.PassFailure()},
		"copy":      {Source: "'abc' copySize: 2", Pass: testutils.PassFormatted("'ab'")},
		"copyWhole": {Source: "'abc' copySize: 3", Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}

func TestSystemScripts(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"clone":       {Source: "(| run = ( | a. b | a: (| x <- 1 |). b: (system clone: a). b x: 5. a x ) |) run", Pass: testutils.PassInteger(1)},
		"identity":    {Source: "system is: 3 Identical: 3", Pass: testutils.PassFormatted("true")},
		"notIdentity": {Source: "system is: (| |) Identical: (| |)", Pass: testutils.PassFormatted("false")},
		"error":       {Source: "system error: 'boom'", Pass: testutils.PassFailure()},
		"gc":          {Source: "(| run = ( | s | s: 'kept'. system collectGarbage. s ) |) run", Pass: testutils.PassFormatted("'kept'")},
		"expectFail":  {Source: "[ system error: 'x' ] expectToFail: 'must fail'", Pass: testutils.PassSuccess()},
		"expectPass":  {Source: "[ 3 ] expectToNotFail: 'fine'", Pass: testutils.PassInteger(3)},
		"badExpect":   {Source: "[ 3 ] expectToFail: 'wanted a failure'", Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}

func TestActorScripts(t *testing.T) {
	cases := []struct {
		name string
		c    testutils.SourceTestCase
	}{
		{"current", testutils.SourceTestCase{Source: "actors current", Pass: testutils.PassInteger(0)}},
		{"spawn", testutils.SourceTestCase{Source: "(actors spawn: [ (| x = ( 1 ) |) ]) send: 'x'. actors finish. 7", Pass: testutils.PassInteger(7)}},
		{"badSpawn", testutils.SourceTestCase{Source: "actors spawn: 3", Pass: testutils.PassFailure()}},
	}
	for _, c := range cases {
		t.Run(c.name, c.c.TestFunc(c.name))
	}
}
