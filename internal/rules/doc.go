// Package rules implements the cleaning and imputation rules the pipeline
// runs against a hospital-records table. Each rule is a pipeline.Rule: a
// named, idempotent transform over one or more columns that records what it
// changed in the run report.
//
// The rules are thin bodies over configuration. Accepted value sets, valid
// ranges, repair policies, fill strategies and derived-feature definitions
// all come from a config.Ruleset; the rule types here only carry out the
// declared policy. Build assembles a complete ordered rule list from a
// ruleset:
//
//	rules, err := rules.Build(ruleset, config.DatePolicySwap)
//	if err != nil {
//	    return err
//	}
//	for _, r := range rules {
//	    if err := registry.Register(r); err != nil {
//	        return err
//	    }
//	}
//
// Rule order matters and Build fixes it: duplicate removal first so later
// rules never report fixes on rows about to be deleted, then text
// normalization, categorical validation, numeric ranges, imputation, date
// repair, derived features, and last the report-only outlier audit. Derived
// features always run after imputation and date repair because they read
// cells those rules may have just filled or corrected.
//
// Every rule recovers locally from malformed cell values by treating them as
// absent. The only errors a rule returns are the fatal ones: a residual date
// ordering violation after swap repair, or structural table failures that
// indicate a bug rather than bad data.
package rules
