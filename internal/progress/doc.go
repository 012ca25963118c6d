// Package progress records which calendar days have been durably imported.
//
// State lives in a small JSON file:
//
//	{
//	  "completed_days": ["2024-01-01", "2024-01-02"],
//	  "last_updated": "2024-01-03T07:15:00Z",
//	  "total_completed": 2,
//	  "total_points": 1830,
//	  "points_by_day": {"2024-01-01": 1830}
//	}
//
// The file is rewritten atomically (temp file, fsync, rename) after every
// day, so a crash loses at most the day in flight. A day's presence in
// completed_days is the only input to re-import decisions; point counts are
// for reporting.
package progress
