// Package config loads service definitions for soapd.
//
// A service file describes the endpoint and the operations it exposes:
//
//	name: Calculator
//	namespace: calc
//	address: ":8080"
//	path: /soap
//	operations:
//	  - name: Add
//	    doc: Adds two integers
//	    inputs:
//	      - {name: a, type: int}
//	      - {name: b, type: int}
//	    outputs:
//	      - {name: sum, type: int, expr: "a + b"}
//	include:
//	  - ops/**/*.yaml
//
// Included files carry only an operations list and are resolved relative to
// the file that includes them. Values of the form ${VAR} or ${VAR:-default}
// are expanded from the environment before parsing.
//
//	cfg, err := config.LoadFromFile("soapd.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
