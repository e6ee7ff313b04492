package mocks

//go:generate mockery --name ResultStore --srcpkg github.com/aevon-lab/wmean/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
//go:generate mockery --name EventStore --srcpkg github.com/aevon-lab/wmean/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
