// Package buildlog extracts compiler diagnostics from MSBuild file-logger
// output.
//
// Each log line is matched on its own against the compiler diagnostic shape
//
//	12>src/Foo/Bar.cs(42,17): warning CS0168: The variable 'e' is declared but never used [/src/Foo/Foo.csproj]
//
// and routed into [Log.Warnings] or [Log.Errors] in log order. Lines that do
// not match are ignored. Use [LoadIfExists] when a missing log means "no
// diagnostics" rather than a failure.
package buildlog
