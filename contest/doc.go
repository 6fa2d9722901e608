// Package contest loads a contest catalogue, the ordered groups and
// candidates of one election, and resolves expression identifiers against it.
//
// A catalogue is a YAML file:
//
//	name: Senate 2022
//	groups:
//	  - name: ALP
//	    candidates: [Smith, Jones]
//	  - name: GRN
//	    candidates: [Brown]
//
// Candidates are numbered globally in file order, groups in file order.
// Above the line the entities seen by expressions are the groups; below the
// line they are the candidates and a group name stands for its members.
package contest
